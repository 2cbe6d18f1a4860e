package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
)

// PrintFunc is a function used to print formatted output.
// Matches the signature of both fmt.Printf and display.UI.Printf.
type PrintFunc func(format string, a ...any)

var (
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	liveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Printer writes one status line per event.
type Printer struct {
	log     *logger.Logger
	printFn PrintFunc
	quiet   bool
}

// PrinterOption configures the Printer.
type PrinterOption func(*Printer)

// WithQuiet hides routine lifecycle events (finished, queued) and keeps
// the ones an operator must see.
func WithQuiet(quiet bool) PrinterOption {
	return func(p *Printer) {
		p.quiet = quiet
	}
}

// NewPrinter creates a status printer. If printFn is nil, fmt.Printf is used.
func NewPrinter(log *logger.Logger, printFn PrintFunc, opts ...PrinterOption) *Printer {
	if printFn == nil {
		printFn = func(format string, a ...any) {
			fmt.Printf(format+"\n", a...)
		}
	}
	p := &Printer{log: log, printFn: printFn}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle prints ev. It has the Handler signature so it can be subscribed
// to a Bus directly.
func (p *Printer) Handle(ev domain.Event) {
	msg := ev.Message()
	p.log.Debug("status: %s", msg)

	switch ev.Kind {
	case domain.EventFailed:
		p.printFn("%s", errorStyle.Render(msg))
	case domain.EventInterrupt:
		p.printFn("%s", liveStyle.Render(msg))
	case domain.EventPlaying:
		p.printFn("%s", infoStyle.Render(msg))
	default:
		if p.quiet {
			return
		}
		p.printFn("%s", subtleStyle.Render(msg))
	}
}
