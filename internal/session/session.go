// Package session manages the ephemeral SSH identity for a single deployment
// run: key material on disk, a per-run ssh client configuration, and an
// ssh-agent process holding the key.
package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const (
	keyFileName        = "deploy_key"
	knownHostsFileName = "deploy_known_hosts"

	// muxSocketPrefix names the connection-multiplexing control sockets in
	// the temp directory; the cleaner globs on it.
	muxSocketPrefix = "ssh-mux-"
)

// clientConfigTemplate renders the per-run ssh client configuration. The
// control path is templated per remote user/host/port so concurrent targets
// get distinct master connections.
const clientConfigTemplate = `Host *
  StrictHostKeyChecking {{strictHostKeyChecking}}
  UserKnownHostsFile {{{knownHostsFile}}}
  IdentityFile {{{identityFile}}}
  IdentitiesOnly yes
  Port {{port}}
  ControlMaster auto
  ControlPath {{{controlPath}}}
  ControlPersist 300
  ServerAliveInterval 15
  ServerAliveCountMax 3
`

// ssh-agent announces its socket and PID as shell export statements.
var (
	authSockPattern = regexp.MustCompile(`SSH_AUTH_SOCK=([^;]+);`)
	agentPIDPattern = regexp.MustCompile(`SSH_AGENT_PID=(\d+);`)
)

// Handle identifies the ssh-agent started for a session.
type Handle struct {
	// AuthSock is the agent's authentication socket path.
	AuthSock string

	// PID is the agent's process identifier, as announced by the agent.
	PID string
}

// Session tracks every artifact created for one deployment run. It is the
// explicit alternative to exporting agent state into the process environment:
// subprocesses that need the identity receive Environ() additions instead.
type Session struct {
	// KeyPath is the private key file, mode 0600.
	KeyPath string

	// KnownHostsPath is the known_hosts file, empty when strict host key
	// checking is disabled.
	KnownHostsPath string

	// ConfigPath is the uniquely-named ssh client configuration file.
	ConfigPath string

	// SSHCommand is the client invocation referencing ConfigPath.
	SSHCommand string

	// Agent is the running agent, nil until the agent has started.
	Agent *Handle
}

// Environ returns the environment additions subprocesses need to use the
// session's identity. Safe on a nil or partially-initialized session.
func (s *Session) Environ() []string {
	if s == nil {
		return nil
	}
	var env []string
	if s.SSHCommand != "" {
		env = append(env, "GIT_SSH_COMMAND="+s.SSHCommand)
	}
	if s.Agent != nil {
		env = append(env,
			"SSH_AUTH_SOCK="+s.Agent.AuthSock,
			"SSH_AGENT_PID="+s.Agent.PID,
		)
	}
	return env
}

// Manager materializes SSH credentials and a per-run client configuration.
type Manager struct {
	// HomeDir overrides the user home directory; defaults to os.UserHomeDir.
	HomeDir string

	// TempDir overrides the directory for the config file and control
	// sockets; defaults to os.TempDir.
	TempDir string
}

// NewManager creates a manager using the current user's defaults.
func NewManager() *Manager {
	return &Manager{}
}

// Begin writes the private key and optional known_hosts under ~/.ssh, renders
// the session ssh config, starts an ssh-agent and registers the key with it.
//
// The returned session is non-nil even on failure so the caller can hand it
// to a Cleaner; every artifact created before the failure is recorded on it.
func (m *Manager) Begin(ctx context.Context, privateKey, knownHosts string, port int) (*Session, error) {
	sess := &Session{}

	sshDir := filepath.Join(m.homeDir(), ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return sess, fmt.Errorf("failed to create SSH directory: %w", err)
	}

	sess.KeyPath = filepath.Join(sshDir, keyFileName)
	if err := os.WriteFile(sess.KeyPath, []byte(withTrailingNewline(privateKey)), 0o600); err != nil {
		return sess, fmt.Errorf("failed to write private key: %w", err)
	}
	logKeyFingerprint(privateKey)

	strictChecking := "no"
	knownHostsFile := os.DevNull
	if strings.TrimSpace(knownHosts) != "" {
		sess.KnownHostsPath = filepath.Join(sshDir, knownHostsFileName)
		if err := os.WriteFile(sess.KnownHostsPath, []byte(withTrailingNewline(knownHosts)), 0o644); err != nil {
			return sess, fmt.Errorf("failed to write known_hosts: %w", err)
		}
		strictChecking = "yes"
		knownHostsFile = sess.KnownHostsPath
	} else {
		logrus.Warn("no known_hosts provided, strict host key checking is disabled")
	}

	configPath, err := m.writeClientConfig(strictChecking, knownHostsFile, sess.KeyPath, port)
	if err != nil {
		return sess, err
	}
	sess.ConfigPath = configPath
	sess.SSHCommand = "ssh -F " + configPath

	handle, err := startAgent(ctx)
	if err != nil {
		return sess, err
	}
	sess.Agent = handle
	logrus.Debugf("ssh-agent started: pid=%s sock=%s", handle.PID, handle.AuthSock)

	if err := addKey(ctx, sess.KeyPath, handle); err != nil {
		return sess, err
	}

	return sess, nil
}

// writeClientConfig renders the ssh client config to a uniquely-named file in
// the temp directory, mode 0600. The name carries a random component so
// concurrent runs never collide.
func (m *Manager) writeClientConfig(strictChecking, knownHostsFile, keyPath string, port int) (string, error) {
	tpl, err := raymond.Parse(clientConfigTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse ssh config template: %w", err)
	}

	content, err := tpl.Exec(map[string]string{
		"strictHostKeyChecking": strictChecking,
		"knownHostsFile":        knownHostsFile,
		"identityFile":          keyPath,
		"port":                  fmt.Sprintf("%d", port),
		"controlPath":           filepath.Join(m.tempDir(), muxSocketPrefix+"%r@%h:%p"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render ssh config: %w", err)
	}

	configPath := filepath.Join(m.tempDir(), fmt.Sprintf("ssh-session-%s.conf", uuid.NewString()))
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write ssh config: %w", err)
	}

	return configPath, nil
}

// startAgent launches ssh-agent and extracts the socket path and PID from its
// announcement output.
func startAgent(ctx context.Context) (*Handle, error) {
	out, err := exec.CommandContext(ctx, "ssh-agent", "-s").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to start ssh-agent: %w", err)
	}

	return parseAgentOutput(string(out))
}

// parseAgentOutput extracts the auth socket and PID from ssh-agent's shell
// export announcement.
func parseAgentOutput(out string) (*Handle, error) {
	sock := authSockPattern.FindStringSubmatch(out)
	pid := agentPIDPattern.FindStringSubmatch(out)
	if sock == nil || pid == nil {
		return nil, fmt.Errorf("%w: %q", ErrAgentParse, strings.TrimSpace(out))
	}

	return &Handle{AuthSock: sock[1], PID: pid[1]}, nil
}

// addKey registers the private key with the agent.
func addKey(ctx context.Context, keyPath string, agent *Handle) error {
	cmd := exec.CommandContext(ctx, "ssh-add", keyPath)
	cmd.Env = append(os.Environ(),
		"SSH_AUTH_SOCK="+agent.AuthSock,
		"SSH_AGENT_PID="+agent.PID,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to register key with agent: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// logKeyFingerprint logs the key's SHA256 fingerprint when the key parses
// locally. The agent may accept formats this parser does not, so a parse
// failure is only a debug event.
func logKeyFingerprint(privateKey string) {
	signer, err := ssh.ParsePrivateKey([]byte(privateKey))
	if err != nil {
		logrus.Debugf("private key not parseable locally: %v", err)
		return
	}
	logrus.Debugf("deploy key fingerprint: %s", ssh.FingerprintSHA256(signer.PublicKey()))
}

func (m *Manager) homeDir() string {
	if m.HomeDir != "" {
		return m.HomeDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func (m *Manager) tempDir() string {
	if m.TempDir != "" {
		return m.TempDir
	}
	return os.TempDir()
}

func withTrailingNewline(s string) string {
	return strings.TrimRight(s, "\n") + "\n"
}
