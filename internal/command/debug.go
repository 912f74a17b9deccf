package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cirruslabs/breakpoint/internal/config"
	"github.com/cirruslabs/breakpoint/internal/executor"
	"github.com/cirruslabs/breakpoint/internal/installer"
	"github.com/cirruslabs/breakpoint/internal/keyprovider"
	"github.com/cirruslabs/breakpoint/internal/session"
	"github.com/cirruslabs/breakpoint/internal/sshenv"
	"github.com/cirruslabs/breakpoint/internal/tmux"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ErrNoAuthorizedKeys = errors.New("access restriction was requested, but no public keys could be fetched")

var (
	logLevel           string
	serverAddress      string
	sshKnownHosts      string
	allowedUsers       string
	limitAccessToActor bool
	pollInterval       time.Duration
	configPath         string
)

func debug(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	sugar := logger.Sugar()

	request, overrides, err := assembleRequest(cmd)
	if err != nil {
		return err
	}

	exec := executor.New(
		executor.WithLogger(sugar),
		executor.WithEnvironmentOverrides(overrides),
	)

	platformInstaller := installer.ForPlatform(exec, sugar)

	if err := platformInstaller.EnsureInstalled(cmd.Context(), "upterm"); err != nil {
		return err
	}

	withMultiplexer := true

	if installer.Probe("tmux") == installer.Missing {
		if err := platformInstaller.EnsureInstalled(cmd.Context(), "tmux"); err != nil {
			sugar.Warnf("no multiplexer available, the session will host a plain shell: %v", err)

			withMultiplexer = false
		}
	}

	homeDir, err := overrides.HomeDir()
	if err != nil {
		return err
	}

	sshDir := filepath.Join(homeDir, ".ssh")

	configurator, err := sshenv.New(
		sshenv.WithLogger(sugar),
		sshenv.WithSSHDirectory(sshDir),
		sshenv.WithProbe(sshenv.SSHProbe(exec, filepath.Join(sshDir, "known_hosts"), sugar)),
	)
	if err != nil {
		return err
	}

	configurator.EnsureKeyPair()

	if err := configurator.EnsureTrust(cmd.Context(), request.ServerAddress, request.KnownHosts); err != nil {
		sugar.Warnf("failed to set up the trust store: %v", err)
	}

	// Must come before any launcher or coordinator is built: a
	// restricted run with nothing to authorize never gets a session
	authorizedKeysPath, err := prepareAuthorizedKeys(cmd.Context(), request,
		newKeyProviderClient(sugar), configurator, sugar)
	if err != nil {
		return err
	}

	// Scratch directory for the multiplexer socket, scoped to this run
	scratchDir := filepath.Join(request.WorkingDirectory, ".breakpoint", uuid.New().String())
	if err := os.MkdirAll(scratchDir, 0700); err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			sugar.Warnf("failed to remove scratch directory %s: %v", scratchDir, err)
		}
	}()

	launchConfig := session.LaunchConfig{
		ServerAddress:      request.ServerAddress,
		AuthorizedKeysPath: authorizedKeysPath,
		HomeDir:            homeDir,
		Env:                overrides.Environ(),
	}

	var launcher session.Launcher

	if withMultiplexer {
		tmuxServer := tmux.NewServer(filepath.Join(scratchDir, "tmux.sock"), overrides.Environ())
		launcher = session.NewTmuxLauncher(tmuxServer, launchConfig, sugar)
	} else {
		launcher = session.NewPTYLauncher(launchConfig, sugar)
	}

	coordinator, err := session.New(
		session.WithLogger(sugar),
		session.WithLauncher(launcher),
		session.WithQuerier(session.NewUptermQuerier(exec)),
		session.WithPoller(session.NewPoller(pollInterval,
			session.DefaultSentinelPaths(request.WorkingDirectory)...)),
		session.WithConnectionCallback(printConnectionBanner),
	)
	if err != nil {
		return err
	}

	return coordinator.Run(cmd.Context())
}

// prepareAuthorizedKeys enforces the access-restriction policy. For an
// unrestricted run it is a no-op; for a restricted run it resolves the
// allowed users' public keys and materializes them as an
// authorized_keys file, failing with ErrNoAuthorizedKeys when not a
// single key could be resolved.
func prepareAuthorizedKeys(
	ctx context.Context,
	request *config.SessionRequest,
	client *keyprovider.Client,
	configurator *sshenv.Configurator,
	sugar *zap.SugaredLogger,
) (string, error) {
	if !request.Restricted() {
		return "", nil
	}

	users := request.RestrictedUsers()

	keys := client.FetchKeys(ctx, users)
	if keys.Empty() {
		return "", fmt.Errorf("%w (users: %s)", ErrNoAuthorizedKeys, strings.Join(users, ", "))
	}

	authorizedKeysPath, err := configurator.WriteAuthorizedKeys(keys.Keys())
	if err != nil {
		return "", err
	}

	sugar.Infof("restricted session access to %d public keys of users %s",
		keys.Len(), strings.Join(users, ", "))

	return authorizedKeysPath, nil
}

func assembleRequest(cmd *cobra.Command) (*config.SessionRequest, *config.EnvironmentOverrides, error) {
	server := serverAddress
	knownHosts := sshKnownHosts
	users := allowedUsers
	includeActor := limitAccessToActor
	overrides := &config.EnvironmentOverrides{}

	if configPath != "" {
		file, err := config.LoadFile(configPath)
		if err != nil {
			return nil, nil, err
		}

		overrides = &file.Environment

		// Flags take precedence over the configuration file
		if !cmd.Flags().Changed("server") && file.Server != "" {
			server = file.Server
		}
		if !cmd.Flags().Changed("ssh-known-hosts") && file.KnownHosts != "" {
			knownHosts = file.KnownHosts
		}
		if !cmd.Flags().Changed("allowed-users") && file.AllowedUsers != "" {
			users = file.AllowedUsers
		}
		if !cmd.Flags().Changed("limit-access-to-actor") {
			includeActor = file.IncludeActor
		}
	}

	workingDirectory := os.Getenv("GITHUB_WORKSPACE")
	if workingDirectory == "" {
		var err error

		workingDirectory, err = os.Getwd()
		if err != nil {
			return nil, nil, err
		}
	}

	request := &config.SessionRequest{
		ServerAddress:    server,
		KnownHosts:       knownHosts,
		AllowedUsers:     config.SplitUsers(users),
		IncludeActor:     includeActor,
		Actor:            os.Getenv("GITHUB_ACTOR"),
		WorkingDirectory: workingDirectory,
	}

	return request, overrides, request.Validate()
}

func newKeyProviderClient(sugar *zap.SugaredLogger) *keyprovider.Client {
	opts := []keyprovider.Option{
		keyprovider.WithLogger(sugar),
	}

	if apiURL := os.Getenv("GITHUB_API_URL"); apiURL != "" {
		opts = append(opts, keyprovider.WithAPIURL(apiURL))
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		opts = append(opts, keyprovider.WithToken(token))
	}

	return keyprovider.New(opts...)
}

func printConnectionBanner(connectionString string) {
	color.New(color.FgGreen, color.Bold).
		Printf("\nConnect to the debugging session with:\n\n    %s\n\n", connectionString)

	fmt.Printf("Once done, run \"touch /%s\" (or create %q in the working directory) to resume the job.\n\n",
		config.SentinelName, config.SentinelName)
}

func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug [flags]",
		Short: "Start an interactive debugging session and idle until it's finished",
		RunE:  debug,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"logging level (possible levels: debug, info, warn, error)")

	cmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "uptermd.upterm.dev:22",
		"address of the upterm server to host the session on")

	cmd.PersistentFlags().StringVar(&sshKnownHosts, "ssh-known-hosts", "",
		"known_hosts material to trust the upterm server with "+
			"(when empty, the server is probed once and certificate-authority lines are derived)")

	cmd.PersistentFlags().StringVar(&allowedUsers, "allowed-users", "",
		"newline/comma/space-separated users whose registered public keys may connect "+
			"(when empty and --limit-access-to-actor is off, anyone with the connection string may connect)")

	cmd.PersistentFlags().BoolVar(&limitAccessToActor, "limit-access-to-actor", false,
		"also authorize the public keys of the user that triggered this CI job ($GITHUB_ACTOR)")

	cmd.PersistentFlags().DurationVar(&pollInterval, "poll-interval", session.DefaultPollInterval,
		"delay between session status checks")

	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to an optional YAML configuration file")

	return cmd
}
