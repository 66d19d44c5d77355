// pkg/interaction/prompt.go

package interaction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	DefaultYesPrompt = "Y/n"
	DefaultNoPrompt  = "y/N"
)

// Prompter is the input seam for anything that asks the operator questions.
// Provisioning code never reads stdin directly; it goes through this
// interface so unattended runs and tests can substitute answers.
type Prompter interface {
	// Confirm asks a yes/no question. Empty input selects def.
	Confirm(ctx context.Context, prompt string, def bool) (bool, error)
	// ReadValue asks for a line of input. Empty input selects def.
	ReadValue(ctx context.Context, prompt, def string) (string, error)
	// ReadSecret asks for hidden input (no terminal echo when on a TTY).
	ReadSecret(ctx context.Context, prompt string) (string, error)
}

// TerminalPrompter reads line-oriented answers from an input stream,
// normally os.Stdin. Prompts are written to stderr so stdout stays clean
// for automation.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	tty *os.File // non-nil when reading the process terminal
}

// NewTerminalPrompter returns a Prompter bound to stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	p := &TerminalPrompter{in: bufio.NewReader(os.Stdin), out: os.Stderr}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		p.tty = os.Stdin
	}
	return p
}

// NewPrompterFrom returns a Prompter bound to arbitrary streams.
func NewPrompterFrom(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) Confirm(ctx context.Context, prompt string, def bool) (bool, error) {
	defPrompt := DefaultYesPrompt
	if !def {
		defPrompt = DefaultNoPrompt
	}

	input, err := p.readLine(ctx, fmt.Sprintf("%s [%s]", prompt, defPrompt))
	if err != nil {
		if err == io.EOF {
			otelzap.Ctx(ctx).Warn("No input available, applying default",
				zap.String("prompt", prompt), zap.Bool("default", def))
			return def, nil
		}
		return def, err
	}

	if answer, ok := NormalizeYesNoInput(input); ok {
		return answer, nil
	}

	otelzap.Ctx(ctx).Debug("Default applied", zap.String("prompt", prompt), zap.Bool("default_yes", def))
	return def, nil
}

func (p *TerminalPrompter) ReadValue(ctx context.Context, prompt, def string) (string, error) {
	label := prompt
	if def != "" {
		label = fmt.Sprintf("%s (default: %s)", prompt, def)
	}

	input, err := p.readLine(ctx, label)
	if err != nil {
		if err == io.EOF {
			otelzap.Ctx(ctx).Warn("No input available, applying default",
				zap.String("prompt", prompt), zap.String("default", def))
			return def, nil
		}
		return def, err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}

func (p *TerminalPrompter) ReadSecret(ctx context.Context, prompt string) (string, error) {
	if p.tty != nil {
		_, _ = fmt.Fprint(p.out, prompt+": ")
		bytePassword, err := term.ReadPassword(int(p.tty.Fd()))
		_, _ = fmt.Fprintln(p.out)
		if err != nil {
			otelzap.Ctx(ctx).Error("Failed to read secret input", zap.Error(err))
			return "", err
		}
		return strings.TrimSpace(string(bytePassword)), nil
	}

	// Not a TTY: fall back to a plain (echoed) read.
	return p.readLine(ctx, prompt)
}

func (p *TerminalPrompter) readLine(ctx context.Context, label string) (string, error) {
	otelzap.Ctx(ctx).Debug("Prompting user for input", zap.String("label", label))

	_, _ = fmt.Fprint(p.out, label+": ")

	text, err := p.in.ReadString('\n')
	if err != nil && text == "" {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// NormalizeYesNoInput returns (answer, ok). It trims whitespace and
// lowercases input; y/yes and n/no are recognized, anything else is not.
func NormalizeYesNoInput(input string) (bool, bool) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "y" || input == "yes" {
		return true, true
	}
	if input == "n" || input == "no" {
		return false, true
	}
	return false, false
}
