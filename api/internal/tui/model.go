package tui

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wasteboz/api/internal/ewc"
	"wasteboz/api/internal/session"
	"wasteboz/api/internal/util"
)

// Searcher is the TUI-facing subset of the session controller.
type Searcher interface {
	SubmitText(ctx context.Context, query string) (session.State, bool)
	SubmitImage(ctx context.Context, imageData string) (session.State, bool)
	Reset() session.State
	DismissError() session.State
	Snapshot() session.State
}

// settledMsg arrives when a submit returns.
type settledMsg struct{ applied bool }

// Model is the Bubble Tea model for the lookup screen. It keeps no copy of
// the session; every render reads the controller's snapshot.
type Model struct {
	ctrl     Searcher
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	status   string
	ready    bool

	readFile func(string) ([]byte, error)
}

func New(ctrl Searcher) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe the waste, or /scan <photo path>"
	ti.Focus()
	ti.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	return Model{
		ctrl:     ctrl,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(60, 10),
		status:   "Enter submits · ctrl+r resets · esc dismisses errors · ctrl+c quits",
		readFile: os.ReadFile,
	}
}

func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.spinner.Tick) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.input.Width = max(10, msg.Width-qh-4)
	case settledMsg:
		m.viewport.GotoTop()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.ctrl.Reset()
			m.input.SetValue("")
			m.refresh()
			return m, nil
		case tea.KeyEsc:
			m.ctrl.DismissError()
			m.refresh()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			cmd := m.submit(strings.TrimSpace(m.input.Value()))
			m.refresh()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.refresh()
	return m, tea.Batch(cmds...)
}

// submit turns the input line into a controller call run off the UI loop.
func (m *Model) submit(line string) tea.Cmd {
	switch {
	case line == "":
		return nil
	case line == "/reset":
		m.ctrl.Reset()
		m.input.SetValue("")
		return nil
	case strings.HasPrefix(line, "/scan"):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/scan"))
		if path == "" {
			m.status = "Usage: /scan <path to photo>"
			return nil
		}
		image, err := m.loadImage(path)
		if err != nil {
			m.status = "Cannot read photo: " + err.Error()
			return nil
		}
		m.status = "Scanning " + path
		ctrl := m.ctrl
		return func() tea.Msg {
			_, applied := ctrl.SubmitImage(context.Background(), image)
			return settledMsg{applied: applied}
		}
	default:
		m.status = fmt.Sprintf("Searching %q", line)
		ctrl := m.ctrl
		return func() tea.Msg {
			_, applied := ctrl.SubmitText(context.Background(), line)
			return settledMsg{applied: applied}
		}
	}
}

func (m *Model) loadImage(path string) (string, error) {
	b, err := m.readFile(path)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", util.ErrEmptyImage
	}
	return util.MakeDataURL(util.PickMIME("", "", b), base64.StdEncoding.EncodeToString(b)), nil
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderResults(m.ctrl.Snapshot(), m.viewport.Width))
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	s := m.ctrl.Snapshot()

	header := headerStyle.Render("EWC Code Lookup")
	var line string
	switch {
	case s.IsLoading && s.ImagePreview != "":
		line = m.spinner.View() + " Analyzing waste image…"
	case s.IsLoading:
		line = m.spinner.View() + " Consulting EWC database…"
	case s.HasError():
		line = errorStyle.Render("⚠ " + s.Error + "  (esc to dismiss)")
	default:
		line = statusStyle.Render(m.status)
	}
	return header + "\n" + m.viewport.View() + "\n" + queryBoxStyle.Render(m.input.View()) + "\n" + line
}

func renderResults(s session.State, width int) string {
	if len(s.Results) == 0 {
		if s.Phase == session.PhaseSuccess {
			return mutedStyle.Render("No EWC codes found.")
		}
		return mutedStyle.Render("Describe a waste item or scan a photo to get EWC codes.")
	}
	cards := make([]string, 0, len(s.Results))
	for _, w := range s.Results {
		cards = append(cards, renderCard(w, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func renderCard(w ewc.WasteCode, width int) string {
	box, badge := cardStyle, safeBadgeStyle.Render(ewc.BadgeNonHazardous)
	if w.Hazardous {
		box, badge = hazardCardStyle, hazardBadgeStyle.Render(ewc.BadgeHazardous)
	}
	lines := []string{
		codeStyle.Render(w.Code) + "  " + badge,
		mutedStyle.Render(w.Category),
		w.Description,
	}
	if w.Confidence != nil {
		lines = append(lines, mutedStyle.Render(ewc.FormatConfidence(*w.Confidence)+"% match"))
	}
	if width > 4 {
		box = box.Width(width - 4)
	}
	return box.Render(strings.Join(lines, "\n"))
}

var (
	amber = lipgloss.Color("214")

	headerStyle      = lipgloss.NewStyle().Bold(true)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	codeStyle        = lipgloss.NewStyle().Bold(true)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	cardStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	hazardCardStyle  = cardStyle.BorderForeground(amber)
	safeBadgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	hazardBadgeStyle = lipgloss.NewStyle().Foreground(amber).Bold(true)
)
