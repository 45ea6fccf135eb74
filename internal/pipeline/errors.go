package pipeline

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/ironsheep/omr-tools-mcp/internal/imaging"
)

// ErrorCode classifies per-file failures reported in a batch.
type ErrorCode string

const (
	ErrorInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrorDecodeFailed  ErrorCode = "DECODE_FAILED"
	ErrorGradingFailed ErrorCode = "GRADING_FAILED"
	ErrorCanceled      ErrorCode = "CANCELED"
	ErrorInternal      ErrorCode = "INTERNAL"
)

// InputError rejects an upload before it enters the pixel pipeline.
type InputError struct {
	FileName string
	Reason   string
}

func (e *InputError) Error() string {
	if e.FileName == "" {
		return e.Reason
	}
	return e.FileName + ": " + e.Reason
}

// FileError is one failed file of a batch.
type FileError struct {
	FileName string    `json:"fileName"`
	Code     ErrorCode `json:"code"`
	Error    string    `json:"error"`
}

// SortByInput orders errs by the position of their FileName in names, the
// file list a batch was requested with. Errors for names not in the list
// follow the known ones. The sort is stable.
func SortByInput(errs []FileError, names []string) {
	pos := make(map[string]int, len(names))
	for i, n := range names {
		if _, seen := pos[n]; !seen {
			pos[n] = i
		}
	}
	rank := func(e FileError) int {
		if i, ok := pos[e.FileName]; ok {
			return i
		}
		return len(names)
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return rank(errs[i]) < rank(errs[j])
	})
}

// classify maps a processing error to its batch error code.
func classify(err error) ErrorCode {
	var inputErr *InputError
	var decodeErr *imaging.ImageDecodeError
	switch {
	case errors.As(err, &inputErr):
		return ErrorInvalidInput
	case errors.As(err, &decodeErr):
		return ErrorDecodeFailed
	case errors.Is(err, errCanceled):
		return ErrorCanceled
	default:
		return ErrorInternal
	}
}

var errCanceled = errors.New("batch canceled before file was processed")
