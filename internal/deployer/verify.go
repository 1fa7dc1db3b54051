package deployer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eugenetaranov/depctl/internal/pathguard"
)

// Verifier confirms a deployer binary is present, executable and responsive.
type Verifier struct{}

// NewVerifier creates a verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify validates binary against workingDir, self-heals a missing executable
// bit, and probes the binary with --version inside workingDir. It returns the
// resolved absolute path of the binary.
func (v *Verifier) Verify(ctx context.Context, binary, workingDir string, env []string) (string, error) {
	path, err := pathguard.Within(workingDir, binary)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if info.Mode().Perm()&0o111 == 0 {
		if err := os.Chmod(path, 0o755); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrPermission, path, err)
		}
		logrus.Debugf("made %s executable", path)
	}

	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.Dir = workingDir
	if env != nil {
		cmd.Env = env
	}

	out, err := cmd.Output()
	version := strings.TrimSpace(string(out))
	if err != nil || version == "" {
		return "", fmt.Errorf("%w: %s", ErrVerification, path)
	}

	logrus.Infof("verified deployer: %s", version)
	return path, nil
}
