package svcmgr

import (
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Runner executes a single service control command.  It blocks until the
// command exits or the timeout elapses, whichever comes first.
type Runner interface {
	Run(timeout time.Duration, prog string, args ...string) error
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run invokes prog with args, failing on non-zero exit or timeout.
func (ExecRunner) Run(timeout time.Duration, prog string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, prog, args...)
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Errorf("'%s' timed out after %s", prog, timeout)
	}
	return errors.WithMessagef(err, "running '%s'", prog)
}

// DryRunner logs commands without executing them.
type DryRunner struct{}

// Run logs the command that would have been executed.
func (DryRunner) Run(timeout time.Duration, prog string, args ...string) error {
	log.Info().Str("prog", prog).Strs("args", args).Msg("dry-run: skipping command")
	return nil
}
