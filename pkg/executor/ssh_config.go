package executor

import (
	"os"
	"os/user"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

const (
	// DefaultSSHPort represents default port of SSH server (22).
	DefaultSSHPort = 22

	defaultSSHKeyRelPath = ".ssh/id_rsa"
)

// SSHConfig with clientConfig, host and port to connect.
type SSHConfig struct {
	ClientConfig *ssh.ClientConfig
	Host         string
	Port         int
}

// getAuthMethod which uses given private key.
func getAuthMethod(keyPath string) (ssh.AuthMethod, error) {
	buffer, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read ssh key from %q", keyPath)
	}

	key, err := ssh.ParsePrivateKey(buffer)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse ssh key from %q", keyPath)
	}

	return ssh.PublicKeys(key), nil
}

// NewSSHConfig creates a new ssh config for user.
// NOTE: Assumes the private key is available in the default location
// (<home_dir>/.ssh/id_rsa). Host keys are not verified: the harness is a
// best-effort batch tool on a trusted network, not a production scheduler.
func NewSSHConfig(host string, port int, user *user.User) (SSHConfig, error) {
	authMethod, err := getAuthMethod(filepath.Join(user.HomeDir, defaultSSHKeyRelPath))
	if err != nil {
		return SSHConfig{}, err
	}

	clientConfig := &ssh.ClientConfig{
		User: user.Username,
		Auth: []ssh.AuthMethod{
			authMethod,
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	return SSHConfig{
		ClientConfig: clientConfig,
		Host:         host,
		Port:         port,
	}, nil
}
