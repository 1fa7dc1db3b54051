// Package config collects and validates the inputs of a deployment run.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix scopes the environment variables consumed by FromEnv,
// e.g. DEPCTL_PRIVATE_KEY, DEPCTL_TIMEOUT.
const envPrefix = "depctl"

// Validation errors.
var (
	ErrInvalidTimeout   = errors.New("timeout must be a positive integer (milliseconds)")
	ErrInvalidVerbosity = errors.New("verbosity must be v, vv or vvv")
	ErrMissingInput     = errors.New("required input missing")
)

// Inputs holds every boundary input of a run. All values arrive as strings
// (flags, environment, YAML defaults); Validate derives the typed fields.
type Inputs struct {
	// PrivateKey is the SSH private key content (not a path).
	PrivateKey string `envconfig:"PRIVATE_KEY"`

	// Environment is the deployment target, e.g. "production".
	Environment string `envconfig:"ENVIRONMENT"`

	// Revision identifies what to deploy.
	Revision string `envconfig:"REVISION"`

	// Binary is the deployer path relative to WorkingDir.
	Binary string `envconfig:"BINARY" default:"vendor/bin/dep"`

	// KnownHosts is optional known_hosts content; empty disables strict
	// host key checking.
	KnownHosts string `envconfig:"KNOWN_HOSTS"`

	// Port is the SSH port.
	Port int `envconfig:"PORT" default:"22"`

	// WorkingDir is the directory the deployer runs in.
	WorkingDir string `envconfig:"WORKING_DIR" default:"."`

	// Verbosity is the deployer verbosity flag without the dash: v, vv, vvv.
	Verbosity string `envconfig:"VERBOSITY"`

	// Options is a free-form extra options string, shell-quoting honored.
	Options string `envconfig:"OPTIONS"`

	// TimeoutMS is the optional run timeout in milliseconds, as a string so
	// a malformed value is a configuration error rather than a parse panic.
	TimeoutMS string `envconfig:"TIMEOUT"`

	// Timeout is derived from TimeoutMS by Validate; zero means unbounded.
	Timeout time.Duration `ignored:"true"`
}

// FromEnv loads inputs from the environment, honoring an optional .env file.
func FromEnv() (*Inputs, error) {
	_ = godotenv.Load()

	var in Inputs
	if err := envconfig.Process(envPrefix, &in); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &in, nil
}

// Validate checks required inputs and derives Timeout from TimeoutMS.
func (in *Inputs) Validate() error {
	if in.PrivateKey == "" {
		return fmt.Errorf("%w: private key", ErrMissingInput)
	}
	if in.Environment == "" {
		return fmt.Errorf("%w: environment", ErrMissingInput)
	}
	if in.Revision == "" {
		return fmt.Errorf("%w: revision", ErrMissingInput)
	}

	switch in.Verbosity {
	case "", "v", "vv", "vvv":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidVerbosity, in.Verbosity)
	}

	if in.TimeoutMS != "" {
		ms, err := strconv.Atoi(in.TimeoutMS)
		if err != nil || ms <= 0 {
			return fmt.Errorf("%w: got %q", ErrInvalidTimeout, in.TimeoutMS)
		}
		in.Timeout = time.Duration(ms) * time.Millisecond
	}

	return nil
}
