package media

import (
	"errors"
	"fmt"
)

// Error kinds returned by the probe and transform operations. Callers match
// them with errors.Is; the concrete error is usually an *OpError.
var (
	ErrProbe             = errors.New("probe failed")
	ErrArtifactNotFound  = errors.New("artifact not found")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrTranscode         = errors.New("transcode failed")
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrIllegalTransition = errors.New("illegal artifact transition")
)

// OpError records the operation and the artifact location that failed.
type OpError struct {
	Op       string // operation name, e.g. "extract_subclip"
	Location string // the location the failure is about
	Kind     error  // one of the Err* sentinels
	Err      error  // underlying cause, may be nil
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Location, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Location, e.Kind)
}

// Is reports whether target is the error kind of e.
func (e *OpError) Is(target error) bool {
	return target == e.Kind
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op, location string, kind, err error) *OpError {
	return &OpError{Op: op, Location: location, Kind: kind, Err: err}
}
