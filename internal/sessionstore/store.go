// Package sessionstore keeps a terminal's session state between posctl runs.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tablepos/api/internal/session"
)

// ErrNotFound is returned by Load when nothing is stored for a terminal.
var ErrNotFound = errors.New("session not found")

// Store persists session state per terminal name.
type Store interface {
	Save(ctx context.Context, terminal string, state session.State) error
	Load(ctx context.Context, terminal string) (session.State, error)
	Delete(ctx context.Context, terminal string) error
}

func checkTerminal(terminal string) error {
	if terminal == "" {
		return fmt.Errorf("terminal name cannot be empty")
	}
	if strings.ContainsAny(terminal, `/\`) || terminal == "." || terminal == ".." {
		return fmt.Errorf("invalid terminal name %q", terminal)
	}
	return nil
}
