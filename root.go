package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/dropbox-go/internal/config"
	"github.com/tonimelisma/dropbox-go/internal/dropbox"
	"github.com/tonimelisma/dropbox-go/internal/tokenfile"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
	flagNoLog      bool
)

// errNotLoggedIn is returned by commands that need a saved or env token.
var errNotLoggedIn = errors.New("not logged in, run 'dropbox-go login' first")

// CLIFlags is a snapshot of the persistent flags for one invocation.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
	NoLog      bool
}

// CLIContext carries everything a subcommand needs. It is built once in
// PersistentPreRunE and stored in the command's context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
	Tokens *tokenfile.Store

	deps appDeps
}

// appDeps are the process-level resources the CLI touches. Tests replace them.
type appDeps struct {
	fs     afero.Fs
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	// facadeOpts are appended after the defaults built from config.
	facadeOpts []dropbox.Option
}

func defaultDeps() appDeps {
	return appDeps{
		fs:     afero.NewOsFs(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by PersistentPreRunE.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("BUG: CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	return buildRootCmd(defaultDeps())
}

func buildRootCmd(deps appDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dropbox-go",
		Short:   "Dropbox CLI client",
		Long:    "Upload, download, and share files in a Dropbox account.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext(deps)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().BoolVar(&flagNoLog, "no-log", false, "disable all logging")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.SetOut(deps.stdout)
	cmd.SetErr(deps.stderr)

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newShareCmd())
	cmd.AddCommand(newLsCmd())

	return cmd
}

// newCLIContext resolves config and builds the logger from the parsed flags.
func newCLIContext(deps appDeps) (*CLIContext, error) {
	flags := CLIFlags{
		ConfigPath: flagConfigPath,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
		NoLog:      flagNoLog,
	}

	cfg, err := config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{ConfigPath: flags.ConfigPath})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dropbox.SetLogEnabled(!flags.NoLog)

	return &CLIContext{
		Flags:  flags,
		Cfg:    cfg,
		Logger: buildLogger(cfg, flags, deps.stderr),
		Tokens: tokenfile.New(deps.fs, cfg.TokenPath),
		deps:   deps,
	}, nil
}

// buildLogger creates the stderr logger. Config log_level is the baseline;
// --verbose and --quiet override it.
func buildLogger(cfg *config.Resolved, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// credentials returns the app credentials from config, or an error naming
// what is missing.
func (cc *CLIContext) credentials() (dropbox.Credentials, error) {
	creds := dropbox.Credentials{AppKey: cc.Cfg.AppKey, AppSecret: cc.Cfg.AppSecret}
	if err := creds.Validate(); err != nil {
		return creds, fmt.Errorf("%w (set [app] in %s or %s/%s)",
			err, cc.Cfg.ConfigPath, config.EnvAppKey, config.EnvAppSecret)
	}

	return creds, nil
}

// requestConfig merges configured values over the process defaults.
func (cc *CLIContext) requestConfig() dropbox.RequestConfig {
	rc := dropbox.DefaultRequestConfig()
	if cc.Cfg.ClientIdentifier != "" {
		rc.ClientIdentifier = cc.Cfg.ClientIdentifier
	}

	if cc.Cfg.Locale != "" {
		rc.Locale = cc.Cfg.Locale
	}

	return rc
}

// facade builds a dropbox.Facade from the resolved config.
func (cc *CLIContext) facade() (*dropbox.Facade, error) {
	creds, err := cc.credentials()
	if err != nil {
		return nil, err
	}

	rc := cc.requestConfig()

	opts := []dropbox.Option{
		dropbox.WithHTTPClient(dropbox.NewHTTPClient(rc, cc.Cfg.Timeout)),
		dropbox.WithFs(cc.deps.fs),
		dropbox.WithCodeProvider(dropbox.ProviderFor(cc.deps.stdin, cc.deps.stderr)),
	}

	if cc.Cfg.TokenURL != "" {
		opts = append(opts, dropbox.WithTokenURL(cc.Cfg.TokenURL))
	}

	opts = append(opts, cc.deps.facadeOpts...)

	return dropbox.New(creds, rc, cc.Logger, opts...), nil
}

// session authorizes with DROPBOX_GO_TOKEN or the saved token.
func (cc *CLIContext) session(ctx context.Context) (*dropbox.Session, error) {
	token := cc.Cfg.Token
	source := config.EnvToken

	if token == "" {
		tf, err := cc.Tokens.Load()
		if err != nil {
			return nil, err
		}

		if tf == nil {
			return nil, errNotLoggedIn
		}

		token = tf.Token.AccessToken
		source = cc.Tokens.Path()
	}

	f, err := cc.facade()
	if err != nil {
		return nil, err
	}

	sess, ok := f.AuthorizeToken(ctx, token)
	if !ok {
		return nil, fmt.Errorf("access token from %s was rejected, run 'dropbox-go login' again", source)
	}

	cc.Logger.Debug("authorized", slog.String("session", sess.ID()), slog.String("token_source", source))

	return sess, nil
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if !cc.Flags.Quiet {
		fmt.Fprintf(cc.deps.stderr, format, args...)
	}
}

// Stdout is where command results go.
func (cc *CLIContext) Stdout() io.Writer {
	return cc.deps.stdout
}
