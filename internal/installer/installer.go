package installer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/cirruslabs/breakpoint/internal/executor"
	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("required tool is not installed and cannot be installed")

// Capability is the result of probing for an external tool.
type Capability int

const (
	Missing Capability = iota
	Installed
)

// Probe reports whether the named tool is available in PATH.
func Probe(name string) Capability {
	if _, err := exec.LookPath(name); err != nil {
		return Missing
	}

	return Installed
}

// Installer makes external tools available on the machine. Installation
// mechanics are deliberately thin: a single package-manager invocation
// per tool, no version pinning.
type Installer interface {
	EnsureInstalled(ctx context.Context, tools ...string) error
}

// ForPlatform selects the installer variant for the current platform.
func ForPlatform(exec *executor.Executor, logger *zap.SugaredLogger) Installer {
	return forPlatform(runtime.GOOS, exec, logger)
}

func forPlatform(goos string, exec *executor.Executor, logger *zap.SugaredLogger) Installer {
	if goos == "linux" {
		return &LinuxInstaller{executor: exec, logger: logger}
	}

	return &GenericInstaller{executor: exec, logger: logger}
}

// LinuxInstaller installs tools via APT, except for upterm which is not
// packaged and is fetched as a pre-built release binary instead.
type LinuxInstaller struct {
	executor *executor.Executor
	logger   *zap.SugaredLogger
}

const uptermDownloadScript = "curl -sSfL https://github.com/owenthereal/upterm/releases/latest/download/upterm_linux_amd64.tar.gz" +
	" | sudo tar xzf - -C /usr/local/bin upterm"

func (installer *LinuxInstaller) EnsureInstalled(ctx context.Context, tools ...string) error {
	for _, tool := range tools {
		if Probe(tool) == Installed {
			continue
		}

		installer.logger.Infof("installing %s...", tool)

		var err error

		if tool == "upterm" {
			_, err = installer.executor.Run(ctx, "sh", "-c", uptermDownloadScript)
		} else {
			_, err = installer.executor.Run(ctx, "sudo", "apt-get", "install", "-y", tool)
		}

		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return nil
}

// GenericInstaller is the fallback for non-Linux platforms. It relies on
// Homebrew when present and otherwise only reports what is missing.
type GenericInstaller struct {
	executor *executor.Executor
	logger   *zap.SugaredLogger
}

func (installer *GenericInstaller) EnsureInstalled(ctx context.Context, tools ...string) error {
	var missing []string

	for _, tool := range tools {
		if Probe(tool) == Installed {
			continue
		}

		if Probe("brew") == Installed {
			installer.logger.Infof("installing %s...", tool)

			formula := tool
			if tool == "upterm" {
				formula = "owenthereal/upterm/upterm"
			}

			if _, err := installer.executor.Run(ctx, "brew", "install", formula); err == nil {
				continue
			}
		}

		missing = append(missing, tool)
	}

	if len(missing) != 0 {
		return fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(missing, ", "))
	}

	return nil
}
