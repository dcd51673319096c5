package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"wasteboz/api/internal/ewc"
)

// Controller owns one search session. Submits block until their
// classification settles and may be called from several goroutines.
//
// A submit that arrives while another is loading supersedes it: the earlier
// call's context is cancelled and whatever it returns later is discarded.
// Reset supersedes in the same way.
type Controller struct {
	cls ewc.Classifier
	log *logrus.Entry

	mu     sync.Mutex
	state  State
	seq    uint64
	cancel context.CancelFunc
}

func NewController(cls ewc.Classifier, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.WithField("component", "session")
	}
	return &Controller{cls: cls, log: log, state: initialState()}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SubmitText searches by description. A blank query changes nothing and makes
// no call. The bool reports whether this call's outcome was applied; it is
// false for a blank query or when a later action superseded the call.
func (c *Controller) SubmitText(ctx context.Context, query string) (State, bool) {
	if strings.TrimSpace(query) == "" {
		return c.Snapshot(), false
	}
	ctx, seq := c.begin(ctx, func(s *State) {
		s.Query = query
		s.ImagePreview = ""
	})
	codes, err := c.cls.ClassifyByText(ctx, query)
	return c.settle(seq, ewc.OpText, codes, err)
}

// SubmitImage searches by photo. imageData is kept as the preview.
func (c *Controller) SubmitImage(ctx context.Context, imageData string) (State, bool) {
	if imageData == "" {
		return c.Snapshot(), false
	}
	ctx, seq := c.begin(ctx, func(s *State) {
		s.Query = ""
		s.ImagePreview = imageData
	})
	codes, err := c.cls.ClassifyByImage(ctx, imageData)
	return c.settle(seq, ewc.OpImage, codes, err)
}

// Reset returns the session to its initial state and abandons any call in
// flight.
func (c *Controller) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked()
	c.state = initialState()
	return c.state.clone()
}

// DismissError hides a settled error; results stay as they are.
func (c *Controller) DismissError() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == PhaseError {
		c.state.Error = ""
		c.state.Phase = PhaseSuccess
		if len(c.state.Results) == 0 {
			c.state.Phase = PhaseIdle
		}
	}
	return c.state.clone()
}

func (c *Controller) begin(ctx context.Context, apply func(*State)) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked()

	ctx, c.cancel = context.WithCancel(ctx)
	apply(&c.state)
	c.state.Error = ""
	c.state.IsLoading = true
	c.state.Phase = PhaseLoading
	return ctx, c.seq
}

func (c *Controller) settle(seq uint64, op ewc.Op, codes []ewc.WasteCode, err error) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		c.log.WithFields(logrus.Fields{"op": op, "seq": seq}).Debug("session: discarding superseded result")
		return c.state.clone(), false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.IsLoading = false

	if err != nil {
		c.state.Error = failureMessage(op, err)
		c.state.Phase = PhaseError
		c.log.WithFields(logrus.Fields{"op": op, "seq": seq}).WithError(err).Info("session: classification failed")
		return c.state.clone(), true
	}
	c.state.Results = ewc.CloneAll(codes)
	c.state.Phase = PhaseSuccess
	return c.state.clone(), true
}

// abandonLocked invalidates the in-flight call, if any.
func (c *Controller) abandonLocked() {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// failureMessage keeps classifier messages and hides anything else behind the
// generic text for the path.
func failureMessage(op ewc.Op, err error) string {
	var ce *ewc.ClassificationError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return ewc.FailureMessage(op)
}
