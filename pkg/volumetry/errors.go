package volumetry

import (
	"errors"
	"fmt"
)

// Kind is a coarse-grained categorization for analysis errors.
type Kind string

const (
	// KindNotFound indicates a source volume or companion file could not be located.
	KindNotFound Kind = "not_found"

	// KindCorruptInput indicates a volume whose structure could not be parsed
	// or normalized (bad dimensions, missing affine, truncated data).
	KindCorruptInput Kind = "corrupt_input"

	// KindProcessing indicates a failure during per-label computation,
	// such as a degenerate voxel-to-world affine.
	KindProcessing Kind = "processing"
)

// Error wraps an underlying error with operation context, a kind, and the
// path of the file being processed. Callers branch on the kind rather than
// on message strings.
type Error struct {
	Op   string
	Kind Kind
	Path string // relevant file path, when known
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}
