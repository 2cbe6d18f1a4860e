// Package command parses operator console input.
package command

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
)

// Compile-time interface check.
var _ domain.CommandParser = (*KeywordParser)(nil)

// KeywordParser matches console input to commands using keywords. Input
// that matches nothing is a live announcement, so an operator can just
// type and press enter.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
	payload  []patternRule
}

type patternRule struct {
	regex   *regexp.Regexp
	command domain.CommandType
}

// NewKeywordParser creates a keyword-based command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(skip|s|stop|next)$`), domain.CommandSkip},
		{regexp.MustCompile(`(?i)^(queue|pending|ls)$`), domain.CommandQueue},
		{regexp.MustCompile(`(?i)^(schedule|sched|list)$`), domain.CommandSchedule},
		{regexp.MustCompile(`(?i)^(reload|r)$`), domain.CommandReload},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.CommandHelp},
		{regexp.MustCompile(`(?i)^(quit|exit|q)$`), domain.CommandQuit},
	}
	// Commands that carry announcement text after the keyword.
	p.payload = []patternRule{
		{regexp.MustCompile(`(?is)^(?:live|!)\s+(.+)$`), domain.CommandLive},
		{regexp.MustCompile(`(?is)^(?:say|announce)\s+(.+)$`), domain.CommandSay},
	}
	return p
}

// Parse converts console input into a command.
func (p *KeywordParser) Parse(ctx context.Context, input string) (domain.Command, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.Command{Type: domain.CommandUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		if rule.regex.MatchString(trimmed) {
			p.log.Debug("matched command: %s", rule.command)
			return domain.Command{Type: rule.command}, nil
		}
	}

	for _, rule := range p.payload {
		if m := rule.regex.FindStringSubmatch(trimmed); m != nil {
			text := strings.TrimSpace(m[1])
			p.log.Debug("matched command: %s", rule.command)
			return domain.Command{Type: rule.command, Text: text}, nil
		}
	}

	// A bare keyword without its text is a mistake, not an announcement.
	if isKeyword(trimmed) {
		return domain.Command{Type: domain.CommandUnknown, Text: trimmed}, nil
	}

	return domain.Command{Type: domain.CommandLive, Text: trimmed}, nil
}

var payloadKeywords = []string{"live", "!", "say", "announce"}

func isKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range payloadKeywords {
		if lower == k {
			return true
		}
	}
	return false
}
