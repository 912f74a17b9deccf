package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoServer = errors.New("no session server address configured")

const SentinelName = "continue"

// SessionRequest is the immutable configuration for a single debugging
// session, assembled once at startup.
type SessionRequest struct {
	// ServerAddress is the upterm server to host the session on,
	// e.g. "uptermd.upterm.dev:22".
	ServerAddress string

	// KnownHosts optionally carries caller-supplied trusted host key
	// material. When non-empty it takes precedence over probing the
	// server for its host key.
	KnownHosts string

	// AllowedUsers is the list of users whose registered public keys
	// are authorized to connect.
	AllowedUsers []string

	// IncludeActor implicitly allow-lists the user that triggered the
	// CI job (Actor).
	IncludeActor bool

	// Actor is the login of the user that triggered the CI job.
	Actor string

	// WorkingDirectory is the CI job's working directory, used for the
	// relative sentinel file check and the scratch directory.
	WorkingDirectory string
}

// Restricted reports whether session access is limited to a specific
// set of users, as opposed to anyone holding the connection string.
func (request *SessionRequest) Restricted() bool {
	return len(request.AllowedUsers) > 0 || (request.IncludeActor && request.Actor != "")
}

// RestrictedUsers returns the deduplicated list of users whose keys
// should be authorized, including the invoking actor when requested.
func (request *SessionRequest) RestrictedUsers() []string {
	var users []string
	seen := map[string]struct{}{}

	appendUser := func(user string) {
		if user == "" {
			return
		}
		if _, ok := seen[user]; ok {
			return
		}
		seen[user] = struct{}{}
		users = append(users, user)
	}

	for _, user := range request.AllowedUsers {
		appendUser(user)
	}
	if request.IncludeActor {
		appendUser(request.Actor)
	}

	return users
}

func (request *SessionRequest) Validate() error {
	if request.ServerAddress == "" {
		return ErrNoServer
	}

	return nil
}

// SplitUsers parses a newline-, comma- or space-separated list of users.
func SplitUsers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ' ' || r == '\t'
	})

	var users []string
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			users = append(users, trimmed)
		}
	}

	return users
}

// EnvironmentOverrides carries the process-wide environment adjustments
// (home, shell and temporary directory) that the executor and the SSH
// configurator should see instead of the ambient process environment.
// It is populated once at startup and read-only afterwards.
type EnvironmentOverrides struct {
	Home    string `yaml:"home"`
	Shell   string `yaml:"shell"`
	TempDir string `yaml:"tmpdir"`
}

// Environ returns the ambient process environment with the overrides
// applied on top.
func (overrides *EnvironmentOverrides) Environ() []string {
	environ := os.Environ()

	if overrides == nil {
		return environ
	}

	for key, value := range map[string]string{
		"HOME":   overrides.Home,
		"SHELL":  overrides.Shell,
		"TMPDIR": overrides.TempDir,
	} {
		if value != "" {
			environ = append(environ, key+"="+value)
		}
	}

	return environ
}

// HomeDir returns the overridden home directory, falling back to the
// current user's one.
func (overrides *EnvironmentOverrides) HomeDir() (string, error) {
	if overrides != nil && overrides.Home != "" {
		return overrides.Home, nil
	}

	return os.UserHomeDir()
}

// File is the optional on-disk configuration, merged under flags and
// environment variables.
type File struct {
	Server       string               `yaml:"server"`
	KnownHosts   string               `yaml:"known-hosts"`
	AllowedUsers string               `yaml:"allowed-users"`
	IncludeActor bool                 `yaml:"limit-access-to-actor"`
	Environment  EnvironmentOverrides `yaml:"environment"`
}

func LoadFile(path string) (*File, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file File

	if err := yaml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}

	return &file, nil
}
