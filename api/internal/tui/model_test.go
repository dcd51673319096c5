package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasteboz/api/internal/ewc"
	"wasteboz/api/internal/session"
)

type fakeSearcher struct {
	texts   []string
	images  []string
	resets  int
	dismiss int
	state   session.State
}

func (f *fakeSearcher) SubmitText(_ context.Context, q string) (session.State, bool) {
	f.texts = append(f.texts, q)
	return f.state, true
}

func (f *fakeSearcher) SubmitImage(_ context.Context, img string) (session.State, bool) {
	f.images = append(f.images, img)
	return f.state, true
}

func (f *fakeSearcher) Reset() session.State        { f.resets++; return f.state }
func (f *fakeSearcher) DismissError() session.State { f.dismiss++; return f.state }
func (f *fakeSearcher) Snapshot() session.State     { return f.state }

func enter(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestEnterSubmitsText(t *testing.T) {
	f := &fakeSearcher{}
	m, cmd := enter(t, New(f), "  paint cans ")
	require.NotNil(t, cmd)
	assert.Equal(t, settledMsg{applied: true}, cmd())
	assert.Equal(t, []string{"paint cans"}, f.texts)
	assert.Contains(t, m.status, "paint cans")
}

func TestEnterOnBlankDoesNothing(t *testing.T) {
	f := &fakeSearcher{}
	_, cmd := enter(t, New(f), "   ")
	assert.Nil(t, cmd)
	assert.Empty(t, f.texts)
}

func TestScanReadsFile(t *testing.T) {
	f := &fakeSearcher{}
	m := New(f)
	m.readFile = func(path string) ([]byte, error) {
		assert.Equal(t, "/tmp/bin.png", path)
		return []byte("\x89PNG\r\n\x1a\n0000"), nil
	}
	_, cmd := enter(t, m, "/scan /tmp/bin.png")
	require.NotNil(t, cmd)
	cmd()
	require.Len(t, f.images, 1)
	assert.True(t, strings.HasPrefix(f.images[0], "data:image/png;base64,"))
}

func TestScanUnreadableFile(t *testing.T) {
	f := &fakeSearcher{}
	m := New(f)
	m.readFile = func(string) ([]byte, error) { return nil, errors.New("no such file") }
	m, cmd := enter(t, m, "/scan missing.jpg")
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "no such file")
	assert.Empty(t, f.images)
}

func TestResetAndDismissKeys(t *testing.T) {
	f := &fakeSearcher{}
	m := New(f)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	next, _ = next.(Model).Update(tea.KeyMsg{Type: tea.KeyEsc})
	_, _ = enter(t, next.(Model), "/reset")
	assert.Equal(t, 2, f.resets)
	assert.Equal(t, 1, f.dismiss)
}

func TestViewReflectsSnapshot(t *testing.T) {
	f := &fakeSearcher{}
	next, _ := New(f).Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m := next.(Model)

	f.state = session.State{Phase: session.PhaseLoading, IsLoading: true, Results: []ewc.WasteCode{}}
	assert.Contains(t, m.View(), "Consulting EWC database")

	f.state = session.State{Phase: session.PhaseError, Error: ewc.MsgTextFailure, Results: []ewc.WasteCode{}}
	assert.Contains(t, m.View(), ewc.MsgTextFailure)
}

func TestRenderResults(t *testing.T) {
	conf := 80.0
	out := renderResults(session.State{Phase: session.PhaseSuccess, Results: []ewc.WasteCode{
		{Code: "20 01 27*", Category: "Household", Description: "Paint", Hazardous: true, Confidence: &conf},
		{Code: "20 01 02", Category: "Municipal", Description: "Glass"},
	}}, 60)
	assert.Contains(t, out, "20 01 27*")
	assert.Contains(t, out, ewc.BadgeHazardous)
	assert.Contains(t, out, ewc.BadgeNonHazardous)
	assert.Contains(t, out, "80% match")

	assert.Contains(t, renderResults(session.State{Phase: session.PhaseSuccess, Results: []ewc.WasteCode{}}, 60), "No EWC codes found.")
}
