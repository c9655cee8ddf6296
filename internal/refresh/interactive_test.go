package refresh

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/logging"
)

func interactiveRequest(argv []string, timeoutMs int) Request {
	return Request{
		Service: "youtube",
		Mode:    ModeInteractive,
		Policy: config.ServicePolicy{
			ExpirationDays: 7,
			Refresh: config.RefreshConfig{
				Strategy:  "interactive",
				Command:   argv,
				TimeoutMs: timeoutMs,
			},
		},
	}
}

func newTestInteractiveStrategy() *InteractiveStrategy {
	s := NewInteractiveStrategy(logging.New(false, true))
	s.pollInterval = 20 * time.Millisecond
	return s
}

func TestInteractiveStrategy_Fetch_RefusesAutomatedMode(t *testing.T) {
	s := newTestInteractiveStrategy()

	req := interactiveRequest([]string{"sh", "-c", "true"}, 0)
	req.Mode = ModeAutomated

	_, err := s.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestInteractiveStrategy_Fetch_NoCommand(t *testing.T) {
	s := newTestInteractiveStrategy()

	_, err := s.Fetch(context.Background(), interactiveRequest(nil, 0))
	assert.Error(t, err)
}

func TestInteractiveStrategy_Fetch_AgentStagesAndExits(t *testing.T) {
	requireShell(t)
	s := newTestInteractiveStrategy()

	script := `printf '%s' '` + agentBundleJSON + `' > "$CREDFRESH_STAGING"`
	b, err := s.Fetch(context.Background(), interactiveRequest([]string{"sh", "-c", script}, 5000))
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.Equal(t, "tok-1", b.Items[0].Value)
}

func TestInteractiveStrategy_Fetch_PicksUpStagingWhileAgentRuns(t *testing.T) {
	requireShell(t)
	s := newTestInteractiveStrategy()

	// The agent stages the bundle and then lingers, the way a helper holding
	// a browser session open would. The poll loop must not wait for exit.
	script := `printf '%s' '` + agentBundleJSON + `' > "$CREDFRESH_STAGING"; sleep 30`
	start := time.Now()
	b, err := s.Fetch(context.Background(), interactiveRequest([]string{"sh", "-c", script}, 10000))
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestInteractiveStrategy_Fetch_AgentExitsWithoutStaging(t *testing.T) {
	requireShell(t)
	s := newTestInteractiveStrategy()

	_, err := s.Fetch(context.Background(), interactiveRequest([]string{"sh", "-c", "true"}, 5000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without staging")
}

func TestInteractiveStrategy_Fetch_InterruptIsNotTimeout(t *testing.T) {
	requireShell(t)
	s := newTestInteractiveStrategy()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	// Generous deadline; the run is interrupted, not timed out.
	_, err := s.Fetch(ctx, interactiveRequest([]string{"sh", "-c", "sleep 30"}, 60000))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInteractiveStrategy_Fetch_Timeout(t *testing.T) {
	requireShell(t)
	s := newTestInteractiveStrategy()

	_, err := s.Fetch(context.Background(), interactiveRequest([]string{"sh", "-c", "sleep 30"}, 150))
	assert.ErrorIs(t, err, ErrTimeout)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestInteractiveStrategy_TryStaged_IgnoresPartialWrites(t *testing.T) {
	s := newTestInteractiveStrategy()
	dir := t.TempDir()

	req := interactiveRequest(nil, 0)

	// Missing file, then a half-written file, then the real thing.
	path := dir + "/bundle.json"
	if _, ok := s.tryStaged(path, req); ok {
		t.Fatal("missing staging file must not parse")
	}

	writeFile(t, path, `{"saved_at":"2026-08-`)
	if _, ok := s.tryStaged(path, req); ok {
		t.Fatal("partial staging file must not parse")
	}

	writeFile(t, path, agentBundleJSON)
	b, ok := s.tryStaged(path, req)
	require.True(t, ok)
	assert.Len(t, b.Items, 1)
}
