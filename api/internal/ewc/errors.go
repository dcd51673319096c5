package ewc

import "errors"

// Failure kinds. They are reachable through errors.Is on a
// *ClassificationError but never appear in its message.
var (
	ErrTransport       = errors.New("ewc: transport failure")
	ErrSchemaViolation = errors.New("ewc: response does not match schema")
	ErrInvalidInput    = errors.New("ewc: input cannot be sent")
)

// Op names the classification path.
type Op string

const (
	OpText  Op = "text"
	OpImage Op = "image"
)

// User-safe messages, one per path.
const (
	MsgTextFailure  = "Failed to search for EWC codes. Please try again."
	MsgImageFailure = "Failed to analyze image. Please try again."
)

// FailureMessage returns the fixed message for op.
func FailureMessage(op Op) string {
	if op == OpImage {
		return MsgImageFailure
	}
	return MsgTextFailure
}

// ClassificationError is the only error a Classifier returns. Its message is
// safe to show to end users.
type ClassificationError struct {
	Op   Op
	Kind error // ErrTransport | ErrSchemaViolation | ErrInvalidInput
}

func NewClassificationError(op Op, kind error) *ClassificationError {
	return &ClassificationError{Op: op, Kind: kind}
}

func (e *ClassificationError) Error() string { return FailureMessage(e.Op) }

func (e *ClassificationError) Unwrap() error { return e.Kind }
