// Package executor sequences a single deployment run.
package executor

import (
	"context"
	"os"
	"time"

	"github.com/eugenetaranov/depctl/internal/config"
	"github.com/eugenetaranov/depctl/internal/deployer"
	"github.com/eugenetaranov/depctl/internal/output"
	"github.com/eugenetaranov/depctl/internal/session"
	"github.com/eugenetaranov/depctl/internal/shellwords"
)

// Terminal status tags. A run always ends with exactly one of them.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Executor runs deployments.
type Executor struct {
	// Output handles formatted output.
	Output *output.Output

	// Sessions provisions the ephemeral SSH identity.
	Sessions *session.Manager

	// Cleaner tears the identity down, unconditionally.
	Cleaner *session.Cleaner

	// Verifier checks the deployer binary before use.
	Verifier *deployer.Verifier

	// Runner executes the deployer subprocess.
	Runner *deployer.Runner
}

// New creates a new executor with default collaborators.
func New() *Executor {
	return &Executor{
		Output:   output.New(os.Stdout),
		Sessions: session.NewManager(),
		Cleaner:  session.NewCleaner(),
		Verifier: deployer.NewVerifier(),
		Runner:   deployer.NewRunner(),
	}
}

// RunResult holds the outcome of a deployment run. Status and Output are
// always set, whatever happened.
type RunResult struct {
	// Status is success or failed.
	Status string

	// Output is the full captured deployer output.
	Output string

	// Err is the primary failure, nil on success. Cleanup failures never
	// replace it.
	Err error
}

// Run executes one deployment: provision the SSH session, verify the deployer
// binary, run the deployment, then tear the session down. Teardown runs on
// every path, including partial session setup, before the result is returned.
func (e *Executor) Run(ctx context.Context, in *config.Inputs) *RunResult {
	result := &RunResult{Status: StatusFailed}
	start := time.Now()

	e.Output.RunStart(in.Environment, in.Revision)
	defer func() {
		e.Output.RunEnd(result.Status, time.Since(start))
	}()

	sess, err := e.Sessions.Begin(ctx, in.PrivateKey, in.KnownHosts, in.Port)
	defer e.Cleaner.Cleanup(sess)
	if err != nil {
		result.Err = err
		e.Output.StepResult("SSH session", "failed", err.Error())
		return result
	}
	e.Output.StepResult("SSH session", "ok", "")

	env := append(os.Environ(), sess.Environ()...)

	binPath, err := e.Verifier.Verify(ctx, in.Binary, in.WorkingDir, env)
	if err != nil {
		result.Err = err
		e.Output.StepResult("Verify deployer", "failed", err.Error())
		return result
	}
	e.Output.StepResult("Verify deployer", "ok", "")

	args, err := deployer.BuildCommand(in.Environment, in.Revision, in.Verbosity, shellwords.Split(in.Options))
	if err != nil {
		result.Err = err
		e.Output.StepResult("Deploy", "failed", err.Error())
		return result
	}

	res, err := e.Runner.Run(ctx, binPath, args, in.WorkingDir, env, in.Timeout)
	if res != nil {
		result.Output = res.Output
	}
	if err != nil {
		result.Err = err
		e.Output.StepResult("Deploy", "failed", err.Error())
		return result
	}
	e.Output.StepResult("Deploy", "ok", "")

	result.Status = StatusSuccess
	return result
}
