package schemair

import "github.com/reoring/schemair/diag"

// Error is the error type returned by every pass.
type Error = diag.Error

// Kind classifies an Error.
type Kind = diag.Kind

const (
	KindResolution  = diag.KindResolution
	KindComposition = diag.KindComposition
	KindTranspile   = diag.KindTranspile
	KindGraph       = diag.KindGraph
)

// Sentinels for errors.Is.
var (
	ErrResolution  = diag.ErrResolution
	ErrComposition = diag.ErrComposition
	ErrTranspile   = diag.ErrTranspile
	ErrGraph       = diag.ErrGraph
)

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) { return diag.AsError(err) }
