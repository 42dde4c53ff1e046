package ports

import "context"

// Prompter blocks until the operator acknowledges message.
type Prompter interface {
	Prompt(ctx context.Context, message string) error
}
