// Package deployer verifies and runs the deployment tool binary.
package deployer

import (
	"errors"
	"fmt"
)

var errEmptyTarget = errors.New("environment and revision must not be empty")

// BuildCommand assembles the deploy argument vector:
//
//	deploy <environment> --revision=<revision> [-v|-vv|-vvv] [options...]
//
// The vector is passed to the executor as discrete argv elements and is never
// re-joined into a shell string.
func BuildCommand(environment, revision, verbosity string, options []string) ([]string, error) {
	if environment == "" || revision == "" {
		return nil, errEmptyTarget
	}

	switch verbosity {
	case "", "v", "vv", "vvv":
	default:
		return nil, fmt.Errorf("invalid verbosity %q: want v, vv or vvv", verbosity)
	}

	args := []string{"deploy", environment, "--revision=" + revision}
	if verbosity != "" {
		args = append(args, "-"+verbosity)
	}
	args = append(args, options...)

	return args, nil
}
