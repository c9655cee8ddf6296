package refresh

import (
	"context"
	"os"
	"os/exec"
)

// newAgentCommand builds the external authentication agent invocation for
// one attempt. The agent learns its target and mode from the environment;
// interactive agents additionally get the staging path to write the new
// bundle to.
func newAgentCommand(ctx context.Context, argv []string, req Request, stagingPath string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(),
		"CREDFRESH_SERVICE="+req.Service,
		"CREDFRESH_ACCOUNT="+req.Account,
		"CREDFRESH_MODE="+string(req.Mode),
	)

	if stagingPath != "" {
		cmd.Env = append(cmd.Env, "CREDFRESH_STAGING="+stagingPath)
		// The operator drives the login through the agent directly.
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	return cmd
}
