package refresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cferrors "github.com/systmms/credfresh/internal/errors"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/pkg/bundle"
)

// defaultPollInterval is how often the staging path is checked while
// waiting on the human step.
const defaultPollInterval = 2 * time.Second

// InteractiveStrategy refreshes a bundle through an agent that needs a
// human in the loop (browser login, 2FA). The agent is told a staging path
// via CREDFRESH_STAGING and is expected to write the new bundle there once
// the operator completes the login. The wait is bounded by the configured
// timeout; there is no unbounded polling.
type InteractiveStrategy struct {
	logger       *logging.Logger
	pollInterval time.Duration
}

// NewInteractiveStrategy creates an interactive refresh strategy
func NewInteractiveStrategy(logger *logging.Logger) *InteractiveStrategy {
	return &InteractiveStrategy{
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// Name returns the strategy name
func (s *InteractiveStrategy) Name() string {
	return "interactive"
}

// SupportsMode reports mode support. Unattended runs cannot complete a
// human login, so automated mode is refused outright.
func (s *InteractiveStrategy) SupportsMode(mode Mode) bool {
	return mode == ModeInteractive
}

// Fetch launches the agent and waits, bounded, for the staged bundle.
func (s *InteractiveStrategy) Fetch(ctx context.Context, req Request) (*bundle.Bundle, error) {
	if req.Mode != ModeInteractive {
		return nil, fmt.Errorf("%w: service %s requires an interactive login", ErrUnsupportedMode, req.Service)
	}

	argv := req.Policy.Refresh.Command
	if len(argv) == 0 {
		return nil, fmt.Errorf("no agent command configured for service %s", req.Service)
	}

	stagingDir, err := os.MkdirTemp("", "credfresh-staging-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)
	stagingPath := filepath.Join(stagingDir, "bundle.json")

	ctx, cancel := context.WithTimeout(ctx, req.Policy.Refresh.Timeout())
	defer cancel()

	cmd := newAgentCommand(ctx, argv, req, stagingPath)

	s.logger.Info("Waiting for %s login to complete (up to %s)...", req.Service, req.Policy.Refresh.Timeout())
	if err := cmd.Start(); err != nil {
		return nil, cferrors.AgentError(req.Service, "refresh", err)
	}

	agentDone := make(chan error, 1)
	go func() { agentDone <- cmd.Wait() }()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-agentDone // CommandContext has killed the agent; reap it
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, fmt.Errorf("%s login interrupted: %w", req.Service, context.Canceled)
			}
			return nil, fmt.Errorf("%w: login not completed within %s", ErrTimeout, req.Policy.Refresh.Timeout())

		case err := <-agentDone:
			// The agent may write the bundle and exit before the next tick.
			if b, ok := s.tryStaged(stagingPath, req); ok {
				return b, nil
			}
			if err != nil {
				return nil, cferrors.AgentError(req.Service, "refresh", err)
			}
			return nil, fmt.Errorf("agent for %s exited without staging a bundle", req.Service)

		case <-ticker.C:
			if b, ok := s.tryStaged(stagingPath, req); ok {
				cancel() // agent no longer needed once the bundle is staged
				<-agentDone
				return b, nil
			}
		}
	}
}

// tryStaged attempts to read a complete, valid bundle from the staging
// path. An unparseable file is treated as still-being-written.
func (s *InteractiveStrategy) tryStaged(path string, req Request) (*bundle.Bundle, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("Staging read for %s: %v", req.Service, err)
		}
		return nil, false
	}

	b, err := bundle.Parse(data)
	if err != nil {
		return nil, false
	}
	if err := b.Validate(); err != nil {
		return nil, false
	}

	s.logger.Debug("Staged bundle for %s ready (%d items)", req.Service, len(b.Items))
	return b, true
}
