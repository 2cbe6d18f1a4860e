// Package display provides the terminal console using Bubble Tea.
//
// The [UI] type keeps a status bar and an input prompt at the bottom of
// the terminal. All other output is printed above the rendered area via
// Program.Println / Printf, so concurrent writes never garble the display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/engine"
	"github.com/hammamikhairi/announcer/internal/render"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

// Prompt is the plain-text input prompt.
const Prompt = "announcer> "

// ReadyStatus is the status line shown before any event arrives.
const ReadyStatus = "System Ready."

// Source reports what the engine is doing. *engine.Engine satisfies it.
type Source interface {
	Snapshot() engine.Snapshot
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely
// call [UI.Println], [UI.Printf], [UI.SetStatus] and read from
// [UI.InputChan] at any time after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	source  Source
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(source Source) *UI {
	return &UI{
		source:  source,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe.
// If the program hasn't started yet, falls back to fmt.Println.
func (u *UI) Println(a ...any) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt. Thread-safe.
func (u *UI) Printf(format string, a ...any) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// SetStatus replaces the status message shown in the bar.
func (u *UI) SetStatus(text string) {
	if u.program != nil && !u.done.Load() {
		u.program.Send(statusMsg(text))
	}
}

// HandleEvent mirrors an engine event into the status bar.
func (u *UI) HandleEvent(ev domain.Event) {
	u.SetStatus(ev.Message())
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// PrintInfo prints a primary line.
func (u *UI) PrintInfo(text string) {
	u.Println(primaryStyle.Render("  " + text))
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintUserInput echoes a typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("announcer") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	u.program = tea.NewProgram(newModel(u.source, u.inputCh, u.readyCh, u.PrintUserInput))
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	source  Source
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)
	snap    engine.Snapshot
	status  string
	now     time.Time
	width   int
}

// Messages.
type (
	tickMsg   time.Time
	statusMsg string
)

func newModel(source Source, inputCh chan<- string, readyCh chan struct{}, echo func(string)) model {
	ti := textinput.New()
	// A plain-text prompt keeps the textinput width math correct; styled
	// prompts add ANSI bytes that break its offset calculations.
	ti.Prompt = Prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	m := model{
		source:  source,
		input:   ti,
		inputCh: inputCh,
		readyCh: readyCh,
		echoFn:  echo,
		status:  ReadyStatus,
		now:     time.Now(),
	}
	if source != nil {
		m.snap = source.Snapshot()
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) == "" {
				return m, nil
			}
			m.inputCh <- v
			// Echo from a Cmd so Println does not block inside Update.
			echoFn := m.echoFn
			return m, func() tea.Msg {
				if echoFn != nil {
					echoFn(v)
				}
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(Prompt) {
			m.input.Width = msg.Width - len(Prompt)
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		if m.source != nil {
			m.snap = m.source.Snapshot()
		}
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(m.titleStr()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) titleStr() string {
	if m.snap.Current != nil {
		return "Announcer - playing"
	}
	return "Announcer"
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.renderBar())
	b.WriteByte('\n')
	b.WriteString(secondaryStyle.Render("  " + m.status))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderBar() string {
	parts := []string{labelStyle.Render(m.now.Format(time.TimeOnly))}

	if m.snap.Current != nil {
		parts = append(parts, playingStyle.Render("▶ "+truncate(render.Announcement(*m.snap.Current), 48)))
	} else {
		parts = append(parts, idleStyle.Render("idle"))
	}

	parts = append(parts, labelStyle.Render(fmt.Sprintf("%d pending", len(m.snap.Pending))))

	if next, ok := nextDue(m.snap.Pending); ok {
		parts = append(parts, labelStyle.Render("next "+humanize.RelTime(next.PlayTime, m.now, "ago", "from now")))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = termWidth()
	}
	return barBg.Width(w).Render(content)
}

// ── Helpers ──────────────────────────────────────────────────────

// nextDue returns the pending entry with the earliest play time.
func nextDue(pending []domain.Announcement) (domain.Announcement, bool) {
	if len(pending) == 0 {
		return domain.Announcement{}, false
	}
	best := pending[0]
	for _, a := range pending[1:] {
		if a.PlayTime.Before(best.PlayTime) {
			best = a
		}
	}
	return best, true
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
