package report

import (
	"fmt"
	"io"

	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rule"
)

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiReverse = "\033[7m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiMagenta = "\033[35m"
)

// Symbols printed in front of each check line.
const (
	SymbolPass  = "✓"
	SymbolFail  = "✗"
	SymbolWarn  = "⚠"
	SymbolError = "!"
)

// Console prints a human-readable report:
//
//	<blank line>
//	Rule Name
//	✓ Check Name
//	✗ violation message
//	! Check Name: fault message
//
//	Result: PASS
type Console struct {
	Base
	out   io.Writer
	color bool
}

// NewConsole creates a Console writing to out. When color is
// true, ANSI colours are used.
func NewConsole(out io.Writer, color bool) *Console {
	return &Console{out: out, color: color}
}

func (c *Console) Name() string { return "console" }

func (c *Console) paint(codes, s string) string {
	if !c.color {
		return s
	}
	return codes + s + ansiReset
}

func (c *Console) StartRule(ruleName string) error {
	_, err := fmt.Fprintf(c.out, "\n%s\n", c.paint(ansiBold, ruleName))
	return err
}

func (c *Console) ReportCheck(
	_, checkName string,
	opts rule.Options,
	o outcome.Outcome,
	message string,
) error {
	text := message
	if text == "" {
		text = checkName
	}

	var symbol, color string
	switch o {
	case outcome.Pass:
		symbol, color = SymbolPass, ansiGreen
	case outcome.Fail:
		symbol, color = SymbolFail, ansiRed
		if !opts.Mandatory {
			color = ansiYellow
		}
	case outcome.Warn:
		symbol, color = SymbolWarn, ansiYellow
	default:
		symbol, color = SymbolError, ansiMagenta
	}

	_, err := fmt.Fprintf(c.out, "%s %s\n", c.paint(color, symbol), text)
	return err
}

func (c *Console) ReportRun(_ rule.Subject, verdict outcome.Verdict) error {
	color := ansiGreen
	if !verdict.Passed() {
		color = ansiRed
	}
	text := "Result: " + verdict.String()
	if c.color {
		text = c.paint(ansiReverse+color, " "+text+" ")
	}
	_, err := fmt.Fprintf(c.out, "\n%s\n", text)
	return err
}
