package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

// Prompter prints a message and blocks until the operator presses Enter.
// End of input counts as consent so piped or detached runs proceed.
//
// A read abandoned by a cancelled Prompt stays with the Prompter; the next
// Prompt consumes its line instead of starting a second reader.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	mu      sync.Mutex
	pending chan error
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) Prompt(ctx context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintln(p.out, message); err != nil {
		return err
	}

	if p.pending == nil {
		done := make(chan error, 1)
		go func() {
			_, err := p.in.ReadString('\n')
			if errors.Is(err, io.EOF) {
				err = nil
			}
			done <- err
		}()
		p.pending = done
	}

	select {
	case err := <-p.pending:
		p.pending = nil
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.Prompter = (*Prompter)(nil)
