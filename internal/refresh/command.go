package refresh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	cferrors "github.com/systmms/credfresh/internal/errors"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/internal/secure"
	"github.com/systmms/credfresh/pkg/bundle"
)

// CommandStrategy refreshes a bundle by running the service's configured
// authentication agent and reading the new bundle JSON from its stdout.
// Works unattended, so both modes are supported.
type CommandStrategy struct {
	logger *logging.Logger
}

// NewCommandStrategy creates a command-based refresh strategy
func NewCommandStrategy(logger *logging.Logger) *CommandStrategy {
	return &CommandStrategy{logger: logger}
}

// Name returns the strategy name
func (s *CommandStrategy) Name() string {
	return "command"
}

// SupportsMode reports mode support; the agent command runs the same way
// whether or not a human is watching.
func (s *CommandStrategy) SupportsMode(mode Mode) bool {
	return mode == ModeInteractive || mode == ModeAutomated
}

// Fetch runs the agent command and decodes the bundle it prints.
func (s *CommandStrategy) Fetch(ctx context.Context, req Request) (*bundle.Bundle, error) {
	argv := req.Policy.Refresh.Command
	if len(argv) == 0 {
		return nil, fmt.Errorf("no agent command configured for service %s", req.Service)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Policy.Refresh.Timeout())
	defer cancel()

	cmd := newAgentCommand(ctx, argv, req, "")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("Running agent command for %s: %s", req.Service, argv[0])
	err := cmd.Run()

	// Keep the raw credentials encrypted in memory from here on.
	enclave := secure.Seal(stdout.Bytes())
	zero(stdout.Bytes())

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: agent did not finish within %s", ErrTimeout, req.Policy.Refresh.Timeout())
		}
		details := strings.TrimSpace(stderr.String())
		if details != "" {
			return nil, cferrors.UserError{
				Message: fmt.Sprintf("%s agent command failed", req.Service),
				Details: details,
				Err:     err,
			}
		}
		return nil, cferrors.AgentError(req.Service, "refresh", err)
	}

	// A clean exit with nothing on stdout is still a failed refresh.
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("agent for %s exited without printing a bundle", req.Service)
	}

	locked, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("open agent output: %w", err)
	}
	defer locked.Destroy()
	defer enclave.Discard()

	b, err := bundle.Parse(locked.Bytes())
	if err != nil {
		return nil, fmt.Errorf("agent output for %s: %w", req.Service, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("agent output for %s: %w", req.Service, err)
	}

	// Agents narrate progress on stderr and sometimes echo the values they
	// just captured; redact before the noise can reach a debug log.
	if details := strings.TrimSpace(stderr.String()); details != "" {
		s.logger.Debug("Agent stderr for %s: %s", req.Service, logging.Redact(details, b.Values()))
	}
	return b, nil
}

// zero overwrites a byte slice in place.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
