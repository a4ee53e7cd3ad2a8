package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/xaionaro-go/observability"
)

// Prompter displays a message and waits until the user confirms (or the
// context is cancelled).
type Prompter interface {
	WaitForEnter(ctx context.Context, msg string) error
}

// StdioPrompter is a Prompter over a line-oriented terminal: each
// confirmation is one Enter-terminated line.
type StdioPrompter struct {
	In  io.Reader
	Out io.Writer

	startOnce sync.Once
	lines     chan error

	failedLocker sync.Mutex
	failed       error
}

var _ Prompter = (*StdioPrompter)(nil)

func NewStdioPrompter(in io.Reader, out io.Writer) *StdioPrompter {
	return &StdioPrompter{
		In:  in,
		Out: out,
	}
}

func (p *StdioPrompter) WaitForEnter(ctx context.Context, msg string) error {
	p.startOnce.Do(func() {
		p.lines = make(chan error)
		observability.Go(ctx, func(ctx context.Context) {
			reader := bufio.NewReader(p.In)
			for {
				_, err := reader.ReadString('\n')
				p.lines <- err
				if err != nil {
					return
				}
			}
		})
	})

	p.failedLocker.Lock()
	failed := p.failed
	p.failedLocker.Unlock()
	if failed != nil {
		return fmt.Errorf("the input is closed: %w", failed)
	}

	if _, err := fmt.Fprint(p.Out, msg); err != nil {
		return fmt.Errorf("unable to display the prompt: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-p.lines:
		if err != nil {
			p.failedLocker.Lock()
			p.failed = err
			p.failedLocker.Unlock()
			return fmt.Errorf("unable to read the input: %w", err)
		}
		return nil
	}
}
