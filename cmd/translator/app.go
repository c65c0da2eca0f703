package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/satranslator/translator/internal/authflow"
	"github.com/satranslator/translator/internal/chat"
	"github.com/satranslator/translator/internal/config"
	"github.com/satranslator/translator/internal/gateway"
	"github.com/satranslator/translator/internal/nav"
	"github.com/satranslator/translator/internal/notify"
	"github.com/satranslator/translator/internal/otp"
	"github.com/satranslator/translator/internal/session"
	"github.com/satranslator/translator/internal/settings"
)

// app is the client core wired for one command run
type app struct {
	cfg      *config.Client
	logger   *logrus.Logger
	persist  *session.BoltPersister
	store    *session.Store
	api      *gateway.Client
	nav      *nav.Navigator
	notifier notify.Notifier
	auth     *authflow.Flow
	otp      *otp.Controller
	chats    *chat.Manager
	settings *settings.Manager

	in  *bufio.Reader
	out io.Writer
}

// options collected from persistent flags before the config is resolved
type options struct {
	configFile string
	assumeYes  bool
}

func newApp(cfg *config.Client, opts options, in io.Reader, out, errOut io.Writer) (*app, error) {
	logger := logrus.New()
	logger.SetOutput(errOut)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	persist, err := session.OpenBolt(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(persist, logger)
	if err := store.Restore(); err != nil {
		logger.WithError(err).Warn("ignoring unreadable saved session")
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		persist:  persist,
		store:    store,
		notifier: notify.NewConsole(errOut),
		in:       bufio.NewReader(in),
		out:      out,
	}
	a.wire(opts.assumeYes)
	return a, nil
}

func (a *app) wire(assumeYes bool) {
	a.api = gateway.New(gateway.Options{
		BaseURL:    a.cfg.Server,
		Timeout:    a.cfg.Timeout,
		DeviceName: a.cfg.DeviceName,
		DeviceType: a.cfg.DeviceType,
	}, a.store, a.logger)
	a.nav = nav.New(a.store)

	a.api.OnUnauthorized(func() {
		a.store.Reset()
		if _, err := a.nav.Navigate(nav.RouteLogin); err != nil {
			a.logger.WithError(err).Warn("failed to navigate to login")
		}
		a.notifier.Error("Your session has expired. Please log in again.")
	})

	confirm := chat.ConfirmFunc(func(prompt string) bool {
		if assumeYes {
			return true
		}
		answer, err := a.prompt(prompt + " [y/N] ")
		if err != nil {
			return false
		}
		answer = strings.ToLower(answer)
		return answer == "y" || answer == "yes"
	})

	a.auth = authflow.New(a.api, a.store, a.nav, a.notifier, a.logger)
	a.otp = otp.NewController(a.api, a.store, a.nav, a.notifier, a.logger)
	a.chats = chat.NewManager(a.api, a.nav, confirm, a.notifier, a.logger)
	a.settings = settings.NewManager(a.api, a.store, a.notifier, a.logger)
	a.nav.Subscribe(a.chats.OnRoute)
}

func (a *app) Close() error {
	if a.persist == nil {
		return nil
	}
	return a.persist.Close()
}

// prompt prints label and reads one trimmed line
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// valueOr returns v, or prompts for it when empty
func (a *app) valueOr(v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	return a.prompt(label)
}

// enter moves to path. Protected paths without a token land on /login.
func (a *app) enter(path string) error {
	loc, err := a.nav.Navigate(path)
	if err != nil {
		return err
	}
	if loc.Pattern == nav.RouteLogin && path != nav.RouteLogin {
		return errNotSignedIn
	}
	return nil
}

var errNotSignedIn = errors.New("not signed in, run `translator login` first")

// errReported marks failures the notifier already showed to the user
var errReported = errors.New("reported")

func reported(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errReported, err)
}

// appKey carries the app between cobra hooks and commands
type appKey struct{}

func contextWithApp(cmd *cobra.Command, a *app) context.Context {
	return context.WithValue(cmd.Context(), appKey{}, a)
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

// run executes one command line. The state file is released however the command ends.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	var opened *app
	defer func() {
		if opened != nil {
			if err := opened.Close(); err != nil {
				opened.logger.WithError(err).Warn("failed to close state file")
			}
		}
	}()

	root := newRootCmd(&opened)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func newRootCmd(opened **app) *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:           "translator",
		Short:         "Translate between South African languages from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewClientViper(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.LoadClient(v, opts.configFile)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			*opened = a
			cmd.SetContext(contextWithApp(cmd, a))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default translator.yaml in . or ~/.satranslator)")
	pf.BoolVarP(&opts.assumeYes, "yes", "y", false, "answer yes to confirmations")
	pf.String("server", config.DefaultServer, "API base URL")
	pf.String("state", "", "session state file (default ~/.satranslator/state.db)")
	pf.Duration("timeout", 0, "request timeout (default 30s)")
	pf.String("device-name", "", "device name reported at login")
	pf.String("device-type", "", "device type reported at login")
	pf.String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRegisterCmd(),
		newLoginCmd(),
		newVerifyCmd(),
		newResendCmd(),
		newForgotPasswordCmd(),
		newResetPasswordCmd(),
		newLogoutCmd(),
		newChatCmd(),
		newHistoryCmd(),
		newDeleteCmd(),
		newProfileCmd(),
		newPasswordCmd(),
		newSessionsCmd(),
		newRevokeCmd(),
		newLanguagesCmd(),
	)
	return root
}
