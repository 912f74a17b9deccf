package sshenv

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const rsaKeyBits = 3072

// ProbeFunc performs a single throwaway connection attempt to the
// session server so that its host key ends up in the trust store.
type ProbeFunc func(ctx context.Context, server string) error

// Configurator prepares the SSH environment for hosting a session: a
// key pair, a trust store entry for the session server and, when access
// is restricted, an authorized_keys file. Every operation is safe to
// re-run.
type Configurator struct {
	logger *zap.SugaredLogger
	sshDir string
	probe  ProbeFunc
}

func New(opts ...Option) (*Configurator, error) {
	configurator := &Configurator{}

	// Apply options
	for _, opt := range opts {
		opt(configurator)
	}

	// Apply defaults
	if configurator.logger == nil {
		configurator.logger = zap.NewNop().Sugar()
	}
	if configurator.sshDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		configurator.sshDir = filepath.Join(homeDir, ".ssh")
	}

	return configurator, nil
}

func (configurator *Configurator) KnownHostsPath() string {
	return filepath.Join(configurator.sshDir, "known_hosts")
}

func (configurator *Configurator) AuthorizedKeysPath() string {
	return filepath.Join(configurator.sshDir, "authorized_keys")
}

func (configurator *Configurator) PrivateKeyPath(algorithm string) string {
	return filepath.Join(configurator.sshDir, "id_"+algorithm)
}

// EnsureKeyPair makes sure an ed25519 and an RSA key pair exist,
// generating the missing ones. Generation failures are logged and
// tolerated: a missing key pair only degrades convenience.
func (configurator *Configurator) EnsureKeyPair() {
	if err := os.MkdirAll(configurator.sshDir, 0700); err != nil {
		configurator.logger.Warnf("failed to create %s: %v", configurator.sshDir, err)

		return
	}

	for _, algorithm := range []string{"ed25519", "rsa"} {
		path := configurator.PrivateKeyPath(algorithm)

		if _, err := os.Stat(path); err == nil {
			configurator.logger.Debugf("key pair %s already exists, skipping generation", path)

			continue
		}

		if err := configurator.generateKeyPair(algorithm, path); err != nil {
			configurator.logger.Warnf("failed to generate %s key pair: %v", algorithm, err)

			continue
		}

		configurator.logger.Infof("generated %s key pair at %s", algorithm, path)
	}
}

func (configurator *Configurator) generateKeyPair(algorithm string, path string) error {
	var privateKey interface{}
	var err error

	switch algorithm {
	case "ed25519":
		_, privateKey, err = ed25519.GenerateKey(rand.Reader)
	case "rsa":
		privateKey, err = rsa.GenerateKey(rand.Reader, rsaKeyBits)
	default:
		return fmt.Errorf("unsupported key algorithm: %s", algorithm)
	}
	if err != nil {
		return err
	}

	pemBlock, err := ssh.MarshalPrivateKey(privateKey, "")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, pem.EncodeToMemory(pemBlock), 0600); err != nil {
		return err
	}

	signer, err := ssh.NewSignerFromKey(privateKey)
	if err != nil {
		return err
	}

	return os.WriteFile(path+".pub", ssh.MarshalAuthorizedKey(signer.PublicKey()), 0644)
}

// WriteAuthorizedKeys appends the given public keys to the
// authorized_keys file and returns its path. With no keys to write it
// returns an empty path and leaves the filesystem untouched.
func (configurator *Configurator) WriteAuthorizedKeys(keys []string) (string, error) {
	if len(keys) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(configurator.sshDir, 0700); err != nil {
		return "", err
	}

	path := configurator.AuthorizedKeysPath()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return "", err
	}
	defer file.Close()

	for _, key := range keys {
		if _, err := fmt.Fprintln(file, key); err != nil {
			return "", err
		}
	}

	return path, nil
}
