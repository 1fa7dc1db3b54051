package session

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Cleaner removes every credential artifact a session may have produced.
// Every step is best-effort and independent; failures are logged at debug
// level and never propagate. Safe to call repeatedly and after partial setup.
type Cleaner struct {
	// HomeDir and TempDir mirror the Manager's overrides so fixed-name
	// artifacts are found even when the session record is incomplete.
	HomeDir string
	TempDir string
}

// NewCleaner creates a cleaner using the current user's defaults.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Cleanup tears the session down. It deliberately takes no context: teardown
// must still run when the deployment's context was cancelled or timed out.
func (c *Cleaner) Cleanup(sess *Session) {
	sshDir := filepath.Join(c.homeDir(), ".ssh")

	keyPath := filepath.Join(sshDir, keyFileName)
	if sess != nil && sess.KeyPath != "" {
		keyPath = sess.KeyPath
	}
	removeFile("private key", keyPath)

	knownHostsPath := filepath.Join(sshDir, knownHostsFileName)
	if sess != nil && sess.KnownHostsPath != "" {
		knownHostsPath = sess.KnownHostsPath
	}
	removeFile("known_hosts", knownHostsPath)

	if sess != nil && sess.ConfigPath != "" {
		removeFile("ssh config", sess.ConfigPath)
	}

	c.removeControlSockets()

	if sess != nil && sess.Agent != nil {
		killAgent(sess.Agent)
		sess.Agent = nil
	}
}

// removeControlSockets deletes leftover multiplexing sockets from the temp
// directory and reports how many were removed.
func (c *Cleaner) removeControlSockets() {
	pattern := filepath.Join(c.tempDir(), muxSocketPrefix+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logrus.Debugf("control socket scan failed: %v", err)
		return
	}

	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			logrus.Debugf("could not remove control socket %s: %v", path, err)
			continue
		}
		removed++
	}
	logrus.Debugf("removed %d control socket(s)", removed)
}

// killAgent terminates the agent via ssh-agent -k. The kill's own exit code
// is ignored; the agent may already be gone.
func killAgent(agent *Handle) {
	cmd := exec.Command("ssh-agent", "-k")
	cmd.Env = append(os.Environ(), "SSH_AGENT_PID="+agent.PID)

	if out, err := cmd.CombinedOutput(); err != nil {
		logrus.Debugf("ssh-agent kill failed: %v: %s", err, strings.TrimSpace(string(out)))
		return
	}
	logrus.Debugf("ssh-agent %s terminated", agent.PID)
}

func removeFile(what, path string) {
	if err := os.Remove(path); err != nil {
		logrus.Debugf("could not remove %s %s: %v", what, path, err)
		return
	}
	logrus.Debugf("removed %s %s", what, path)
}

func (c *Cleaner) homeDir() string {
	if c.HomeDir != "" {
		return c.HomeDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func (c *Cleaner) tempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}
