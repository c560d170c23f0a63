// Package cli is the lendctl terminal client. It shares the API client,
// session manager and view logic with the web front-end; its session is a
// JSON file in the user's config directory.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/events"
	"github.com/equiplend/frontend/internal/lifecycle"
	"github.com/equiplend/frontend/internal/session"
	pkgcfg "github.com/equiplend/frontend/pkg/config"
	"github.com/equiplend/frontend/pkg/logging"
)

var errNotLoggedIn = errors.New("not logged in, run `lendctl login` first")

type App struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	apiURL      string
	sessionPath string
	timeout     time.Duration
	debounce    time.Duration
	logLevel    string
	timezone    string

	api      *apiclient.Client
	sessions *session.Manager
	events   events.Publisher
	runner   *lifecycle.Runner
	loc      *time.Location
	now      func() time.Time
}

func newApp(in io.Reader, out, errOut io.Writer) *App {
	return &App{in: in, out: out, errOut: errOut, now: time.Now}
}

// NewRootCommand builds the lendctl command tree.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newApp(in, out, errOut).rootCommand()
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "lendctl",
		Short:             "Terminal client for the equipment lending service",
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.events != nil {
				return a.events.Close()
			}
			return nil
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.apiURL, "api", pkgcfg.EnvDefault("API_BASE_URL", "http://localhost:8000"), "lending API base URL")
	pf.StringVar(&a.sessionPath, "session-file", os.Getenv("LENDCTL_SESSION_FILE"), "session file (default: user config dir)")
	pf.DurationVar(&a.timeout, "timeout", pkgcfg.EnvDurationDefault("API_TIMEOUT", 10*time.Second), "API request timeout")
	pf.DurationVar(&a.debounce, "debounce", pkgcfg.EnvDurationDefault("SEARCH_DEBOUNCE", 300*time.Millisecond), "quiet period before a search runs")
	pf.StringVar(&a.logLevel, "log-level", pkgcfg.EnvDefault("LOG_LEVEL", "warn"), "log level written to stderr")
	pf.StringVar(&a.timezone, "timezone", pkgcfg.EnvDefault("TIMEZONE", "Local"), "timezone used for borrow dates")

	root.AddCommand(
		a.loginCommand(),
		a.signupCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.equipmentCommand(),
		a.categoriesCommand(),
		a.requestCommand(),
		a.requestsCommand(),
		a.dashboardCommand(),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command) error {
	loc, err := time.LoadLocation(a.timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	a.loc = loc

	path := a.sessionPath
	if path == "" {
		if path, err = session.DefaultFilePath(); err != nil {
			return err
		}
	}

	logger := logging.NewText(a.errOut, a.logLevel).With("service", "lendctl")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.IntoContext(ctx, logger))

	a.api = apiclient.NewClient(a.apiURL, a.timeout)
	a.sessions = session.NewManager(a.api, session.NewFileStore(path))
	a.events = events.New(pkgcfg.CSV(os.Getenv("KAFKA_BROKERS")), pkgcfg.EnvDefault("KAFKA_TOPIC", "borrow_request_events"))
	a.runner = lifecycle.NewRunner(a.api, lifecycle.NewGuard(), a.events)
	return nil
}

// session resumes the stored session, refreshing the access token when it
// is about to expire.
func (a *App) session(ctx context.Context) (*session.Session, error) {
	sess, err := a.sessions.Resume(ctx, "")
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, session.ErrSessionNotFound):
		return nil, errNotLoggedIn
	case errors.Is(err, session.ErrSessionExpired):
		return nil, fmt.Errorf("session expired: %w", errNotLoggedIn)
	}
	return nil, err
}

// apiError turns a failed API call into the error shown to the user. A
// rejected token ends the stored session.
func (a *App) apiError(ctx context.Context, sess *session.Session, err error) error {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		a.sessions.Drop(ctx, sess)
		logging.FromContext(ctx).Info("session_rejected_by_api", "status", 401)
		return fmt.Errorf("session no longer valid: %w", errNotLoggedIn)
	}
	return errors.New(apiclient.UserMessage(err))
}

func requirePrivileged(sess *session.Session) error {
	if !sess.Privileged() {
		return fmt.Errorf("this command is for staff and administrators (you are %s)", sess.Role)
	}
	return nil
}

func logger(ctx context.Context) *slog.Logger { return logging.FromContext(ctx) }
