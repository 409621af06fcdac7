package jsonschema

import (
	"fmt"
	"net/url"
	"strings"
)

// Pointer is an internal reference of the form "#/segment/segment/...".
// Pointers name locations in a Document and are used as stable node ids.
type Pointer string

// ParsePointer splits an internal reference into unescaped path segments.
// "#" addresses the document root and yields no segments.
func ParsePointer(ref string) ([]string, error) {
	if !strings.HasPrefix(ref, "#") {
		return nil, fmt.Errorf("jsonschema: %q is not an internal pointer", ref)
	}
	frag := ref[1:]
	if frag == "" {
		return nil, nil
	}
	if !strings.HasPrefix(frag, "/") {
		return nil, fmt.Errorf("jsonschema: pointer %q must start with \"#/\"", ref)
	}
	raw := strings.Split(frag[1:], "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if strings.Contains(seg, "%") {
			dec, err := url.PathUnescape(seg)
			if err != nil {
				return nil, fmt.Errorf("jsonschema: pointer %q: bad escape in %q: %w", ref, seg, err)
			}
			seg = dec
		}
		// per RFC6901 '~1' is decoded before '~0'
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		out = append(out, seg)
	}
	return out, nil
}

// JoinPointer builds a pointer from raw (unescaped) segments.
func JoinPointer(segs ...string) Pointer {
	if len(segs) == 0 {
		return "#"
	}
	b := &strings.Builder{}
	b.WriteString("#")
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(EscapeSegment(s))
	}
	return Pointer(b.String())
}

// EscapeSegment escapes '~' and '/' in a single segment.
func EscapeSegment(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

// Segments returns the unescaped segments of p.
func (p Pointer) Segments() ([]string, error) { return ParsePointer(string(p)) }

// Child appends raw segments to p.
func (p Pointer) Child(segs ...string) Pointer {
	b := &strings.Builder{}
	b.WriteString(string(p))
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(EscapeSegment(s))
	}
	return Pointer(b.String())
}

// Last returns the final unescaped segment, or "" for the root.
func (p Pointer) Last() string {
	segs, err := p.Segments()
	if err != nil || len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

func (p Pointer) String() string { return string(p) }
