package diag

import "fmt"

// Diag carries non-fatal warnings produced while processing a document.
type Diag interface {
	HasWarnings() bool
	Warnings() []string
}

// Collector is the default Diag implementation. The zero value is ready to use;
// a nil *Collector discards warnings.
type Collector struct{ ws []string }

func (d *Collector) HasWarnings() bool { return d != nil && len(d.ws) > 0 }

func (d *Collector) Warnings() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.ws...)
}

// Warnf records a formatted warning.
func (d *Collector) Warnf(f string, a ...any) {
	if d == nil {
		return
	}
	d.ws = append(d.ws, fmt.Sprintf(f, a...))
}
