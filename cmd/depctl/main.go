// Package main is the entrypoint for the depctl CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eugenetaranov/depctl/internal/config"
	"github.com/eugenetaranov/depctl/internal/executor"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	debug   bool
	noColor bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "depctl",
	Short: "depctl - Credential-scoped deployment runner",
	Long: `depctl runs a single remote deployment through an ephemeral SSH identity.

It writes the deploy key and optional known_hosts, starts a throwaway
ssh-agent, verifies the deployer binary, executes the deployment with a
bounded timeout and live output, and removes every SSH artifact afterwards,
whatever the outcome.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(deployCmd)
}

// deployCmd executes a single deployment run
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run a deployment",
	Long: `Execute one deployment against the given environment.

Inputs not passed as flags are read from DEPCTL_* environment variables
(a .env file is honored) and from an optional YAML defaults file.

Examples:
  depctl deploy -e production -r abc123
  depctl deploy -e staging -r HEAD --key-file ~/.ssh/deploy --options "--parallel"
  depctl deploy --config deploy.yaml -r v1.4.2 --timeout 600000`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringP("environment", "e", "", "Deployment environment (e.g. production)")
	deployCmd.Flags().StringP("revision", "r", "", "Revision to deploy")
	deployCmd.Flags().String("key-file", "", "Path to the SSH private key (content may also come from DEPCTL_PRIVATE_KEY)")
	deployCmd.Flags().String("known-hosts-file", "", "Path to known_hosts content; omit to disable strict host key checking")
	deployCmd.Flags().String("binary", "", fmt.Sprintf("Deployer binary path relative to the working directory (default %q)", config.DefaultBinary))
	deployCmd.Flags().Int("port", 0, fmt.Sprintf("SSH port (default %d)", config.DefaultPort))
	deployCmd.Flags().String("working-dir", "", "Working directory for the deployer (default current directory)")
	deployCmd.Flags().String("verbosity", "", "Deployer verbosity: v, vv or vvv")
	deployCmd.Flags().String("options", "", "Extra deployer options, shell quoting honored")
	deployCmd.Flags().String("timeout", "", "Deployment timeout in milliseconds")
	deployCmd.Flags().String("config", "", "YAML defaults file")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	in, err := collectInputs(cmd)
	if err != nil {
		return err
	}

	exec := executor.New()
	exec.Output.SetColor(!noColor)
	exec.Output.SetDebug(debug)

	logrus.SetOutput(os.Stderr)
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// Handle interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	result := exec.Run(ctx, in)

	if err := writeGithubOutputs(result); err != nil {
		logrus.Debugf("could not write outputs: %v", err)
	}

	if result.Status != executor.StatusSuccess {
		if result.Err != nil {
			return result.Err
		}
		os.Exit(1)
	}
	return nil
}

// collectInputs merges flags over environment variables over file defaults,
// then validates the result.
func collectInputs(cmd *cobra.Command) (*config.Inputs, error) {
	in, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("environment"); v != "" {
		in.Environment = v
	}
	if v, _ := flags.GetString("revision"); v != "" {
		in.Revision = v
	}
	if v, _ := flags.GetString("binary"); v != "" {
		in.Binary = v
	}
	if v, _ := flags.GetInt("port"); v != 0 {
		in.Port = v
	}
	if v, _ := flags.GetString("working-dir"); v != "" {
		in.WorkingDir = v
	}
	if v, _ := flags.GetString("verbosity"); v != "" {
		in.Verbosity = v
	}
	if v, _ := flags.GetString("options"); v != "" {
		in.Options = v
	}
	if v, _ := flags.GetString("timeout"); v != "" {
		in.TimeoutMS = v
	}
	if path, _ := flags.GetString("key-file"); path != "" {
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		in.PrivateKey = string(key)
	}
	if path, _ := flags.GetString("known-hosts-file"); path != "" {
		known, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read known_hosts file: %w", err)
		}
		in.KnownHosts = string(known)
	}

	if path, _ := flags.GetString("config"); path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		in.ApplyFile(f)
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// writeGithubOutputs appends the run's outputs in GitHub Actions format when
// GITHUB_OUTPUT is set. Both outputs are always written, whatever the status.
func writeGithubOutputs(result *executor.RunResult) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "deployment-status=%s\n", result.Status); err != nil {
		return err
	}
	_, err = fmt.Fprintf(f, "deployer-output<<DEPCTL_EOF\n%s\nDEPCTL_EOF\n", result.Output)
	return err
}
