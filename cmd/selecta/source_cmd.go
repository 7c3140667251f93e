package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/runger/selecta/internal/item"
	"github.com/runger/selecta/internal/source"
)

// queryPlaceholder in a --source template is replaced with the current
// effective query on every production round.
const queryPlaceholder = "{q}"

// CommandProducer runs a shell-less command per production round and
// parses its stdout lines into items. It is cancel-safe: the command is
// started with the request context and killed on supersede or timeout.
type CommandProducer struct {
	argv   []string
	kinded bool
}

// Compile-time check that CommandProducer implements source.Producer.
var _ source.Producer = (*CommandProducer)(nil)

// NewCommandProducer parses a command template with shlex. The template
// must contain at least the program name; a {q} token anywhere in it is
// substituted with the query.
func NewCommandProducer(template string, kinded bool) (*CommandProducer, error) {
	argv, err := shlex.Split(template)
	if err != nil {
		return nil, fmt.Errorf("parsing --source: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("--source is empty")
	}
	return &CommandProducer{argv: argv, kinded: kinded}, nil
}

// Produce implements source.Producer.
func (p *CommandProducer) Produce(ctx context.Context, query string) ([]item.Item, error) {
	argv := make([]string, len(p.argv))
	for i, a := range p.argv {
		argv[i] = strings.ReplaceAll(a, queryPlaceholder, query)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("source command: %w", err)
	}
	return readItems(&out, p.kinded)
}
