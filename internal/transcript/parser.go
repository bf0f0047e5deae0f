package transcript

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	lineRE      = regexp.MustCompile(`^\[(\d{2}:\d{2}:\d{2})\]\s*([^:]+):\s*(.+)$`)
	timestampRE = regexp.MustCompile(`\[(\d{1,2}:\d{2}:\d{2})\]`)
)

// ParseError indicates a model output line that does not match the
// [HH:MM:SS] speaker: text grammar.
type ParseError struct {
	LineNo int
	Line   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed transcript line %d: %q", e.LineNo, e.Line)
}

// Parser turns raw model output into Lines. In strict mode any malformed
// line fails the whole window; otherwise malformed lines are skipped with
// a warning after a salvage attempt. Data is never fabricated: a line
// without a recognizable timestamp is dropped, not guessed.
type Parser struct {
	Strict bool

	logger *logrus.Logger
}

// NewParser returns a Parser with the given strictness policy.
func NewParser(strict bool, logger *logrus.Logger) *Parser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Parser{Strict: strict, logger: logger}
}

// Parse splits raw into lines and parses each against the wire grammar.
func (p *Parser) Parse(raw string) ([]Line, error) {
	var lines []Line
	for i, rawLine := range strings.Split(strings.TrimSpace(raw), "\n") {
		rawLine = strings.TrimSpace(rawLine)
		if rawLine == "" {
			continue
		}

		if m := lineRE.FindStringSubmatch(rawLine); m != nil {
			ts, err := ParseTimestamp(m[1])
			if err == nil {
				lines = append(lines, Line{
					Timestamp: ts,
					Speaker:   strings.TrimSpace(m[2]),
					Text:      strings.TrimSpace(m[3]),
				})
				continue
			}
		}

		if p.Strict {
			return nil, &ParseError{LineNo: i + 1, Line: rawLine}
		}

		if line, ok := p.salvage(rawLine); ok {
			p.logger.Warnf("salvaged malformed transcript line %d: %q", i+1, rawLine)
			lines = append(lines, line)
			continue
		}
		p.logger.Warnf("skipping unparseable transcript line %d: %q", i+1, rawLine)
	}
	return lines, nil
}

// salvage recovers a line that carries a timestamp somewhere but does not
// match the full grammar, e.g. odd spacing or a missing speaker.
func (p *Parser) salvage(rawLine string) (Line, bool) {
	m := timestampRE.FindStringSubmatch(rawLine)
	if m == nil {
		return Line{}, false
	}
	ts, err := ParseTimestamp(m[1])
	if err != nil {
		return Line{}, false
	}

	rest := strings.TrimSpace(strings.Replace(rawLine, m[0], "", 1))
	if rest == "" {
		return Line{}, false
	}
	speaker := "Unknown"
	text := rest
	if idx := strings.Index(rest, ":"); idx > 0 {
		speaker = strings.TrimSpace(rest[:idx])
		text = strings.TrimSpace(rest[idx+1:])
	}
	if text == "" {
		return Line{}, false
	}
	return Line{Timestamp: ts, Speaker: speaker, Text: text}, true
}
