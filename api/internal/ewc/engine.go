package ewc

import "context"

// Classifier turns a description or a photo into catalogue entries.
// Implementations make at most one upstream call per invocation and return
// either normalized codes (possibly none) or a *ClassificationError. Input
// that cannot be sent at all (undecodable image data) fails with
// ErrInvalidInput before any call is made.
type Classifier interface {
	ClassifyByText(ctx context.Context, query string) ([]WasteCode, error)
	ClassifyByImage(ctx context.Context, imageData string) ([]WasteCode, error)
}
