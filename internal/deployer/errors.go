package deployer

import (
	"errors"
	"fmt"
	"time"
)

// Binary verification errors.
var (
	ErrNotFound     = errors.New("deployer binary not found")
	ErrPermission   = errors.New("deployer binary could not be made executable")
	ErrVerification = errors.New("deployer version probe failed")
)

// ExitError reports a deployment that finished with a non-zero exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("deployment failed with exit code %d", e.Code)
}

// TimeoutError reports a deployment that exceeded its configured bound.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deployment timed out after %s", e.Limit)
}
