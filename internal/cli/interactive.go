// Package cli runs the content workflows as interactive terminal sessions.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"

	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/session"
)

// InteractiveCLI contains the terminal plumbing shared by every session
type InteractiveCLI struct {
	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	italic       *color.Color
	success      *color.Color
	failure      *color.Color
}

func NewInteractiveCLI(stdin io.Reader, stdout io.Writer) *InteractiveCLI {
	return &InteractiveCLI{
		stdinReader:  bufio.NewReader(stdin),
		stdoutWriter: stdout,
		bold:         color.New(color.Bold),
		italic:       color.New(color.Italic),
		success:      color.New(color.FgGreen),
		failure:      color.New(color.FgRed),
	}
}

func newStdCLI() *InteractiveCLI {
	return NewInteractiveCLI(os.Stdin, os.Stdout)
}

//go:generate mockgen -source=interactive.go -destination=../mocks/cli/mock_session.go -package=mock_cli Session

// Session is one round of an interactive loop; returning errEnd stops the loop
type Session interface {
	Session(ctx context.Context) error
}

var errEnd = errors.New("end")

func (cli *InteractiveCLI) Run(ctx context.Context, session Session) error {
	ctx, cancel := signal.NotifyContext(
		ctx,
		os.Interrupt,
	)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := session.Session(ctx); err != nil {
				if !errors.Is(err, errEnd) {
					errCh <- err
				}
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		fmt.Fprintln(cli.stdoutWriter, "Received interrupt signal, exiting...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error: %w", err)
		}
	}
	return nil
}

// readLine prompts and reads one trimmed line; end of input is errEnd
func (cli *InteractiveCLI) readLine(prompt string) (string, error) {
	_, _ = cli.bold.Fprint(cli.stdoutWriter, prompt)
	line, err := cli.stdinReader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if strings.TrimSpace(line) == "" {
				return "", errEnd
			}
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func isQuit(input string) bool {
	switch strings.ToLower(input) {
	case "quit", "exit", "יציאה":
		return true
	}
	return false
}

// report prints a transition failure. Failures worth another try keep the
// loop alive; missing credits or credentials end it; anything else is returned.
func (cli *InteractiveCLI) report(err error) error {
	_, _ = cli.failure.Fprintln(cli.stdoutWriter, session.UserMessage(err))
	switch {
	case errors.Is(err, credit.ErrDebitFailed),
		errors.Is(err, inference.ErrGenerationFormat),
		errors.Is(err, inference.ErrGenerationFailed):
		return nil
	case errors.Is(err, credit.ErrInsufficientCredits),
		errors.Is(err, inference.ErrMissingCredentials):
		return errEnd
	}
	var sessionErr *session.Error
	if errors.As(err, &sessionErr) {
		return nil
	}
	return err
}
