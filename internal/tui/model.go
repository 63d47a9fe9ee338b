package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"document-qa/internal/models"
	"document-qa/internal/rag"
	"document-qa/internal/session"
)

// Asker is the TUI-facing subset of a loaded session.
type Asker interface {
	Ask(ctx context.Context, question string, mode models.PromptMode, temperature float64) (*models.PromptResponse, error)
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	asker       Asker
	docNames    []string
	input       textinput.Model
	viewport    viewport.Model
	mode        models.PromptMode
	temperature float64
	response    *models.PromptResponse
	cursor      int
	status      string
	ready       bool
}

func New(asker Asker, docNames []string, defaultQuery string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.SetValue(defaultQuery)
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		asker:    asker,
		docNames: docNames,
		input:    ti,
		viewport: vp,
		mode:     models.PromptModeRestricted,
		status:   "Loaded. Enter asks, tab switches mode, +/- on an empty prompt change temperature.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + 1 + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResponse())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			m.ask(strings.TrimSpace(m.input.Value()))
			return m, nil
		case "tab":
			m.mode = nextMode(m.mode)
			return m, nil
		case "+", "-":
			if m.input.Value() == "" {
				m.temperature = stepTemperature(m.temperature, msg.String() == "+")
				return m, nil
			}
		case "down":
			if m.response != nil && len(m.response.Sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.response.Sources)
				m.viewport.SetContent(m.renderResponse())
				return m, nil
			}
		case "up":
			if m.response != nil && len(m.response.Sources) > 0 {
				n := len(m.response.Sources)
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderResponse())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) ask(q string) {
	resp, err := m.asker.Ask(context.Background(), q, m.mode, m.temperature)
	if err != nil {
		m.status = session.UserMessage(err)
		m.response = nil
	} else {
		m.status = fmt.Sprintf("Answered %q (%s, temperature %.1f)", q, m.mode, m.temperature)
		m.response = resp
		m.cursor = 0
	}
	m.viewport.SetContent(m.renderResponse())
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document QA")
	docs := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Documents: " + strings.Join(m.docNames, ", "))
	settings := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Render(fmt.Sprintf("Mode: %s  Temperature: %.1f", m.mode, m.temperature))
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + docs + "\n" + settings + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResponse() string {
	if m.response == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(answerStyle.Render(m.response.Answer))
	if n := len(m.response.Sources); n > 0 {
		fmt.Fprintf(&b, "\n\nSource %d/%d\n\n", m.cursor+1, n)
		b.WriteString(rag.FormatSource(m.response.Sources[m.cursor]))
	}
	return b.String()
}

func nextMode(mode models.PromptMode) models.PromptMode {
	for i, md := range models.PromptModes {
		if md == mode {
			return models.PromptModes[(i+1)%len(models.PromptModes)]
		}
	}
	return models.PromptModes[0]
}

// stepTemperature moves one step and stays within the selectable range.
func stepTemperature(t float64, up bool) float64 {
	if up {
		t += models.TemperatureStep
	} else {
		t -= models.TemperatureStep
	}
	t = math.Round(t*10) / 10
	return math.Min(models.MaxTemperature, math.Max(models.MinTemperature, t))
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Bold(true)
)
