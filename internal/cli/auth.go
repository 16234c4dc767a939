package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/crypto"
	"github.com/mrlokans/adminauth/internal/database"
	"github.com/mrlokans/adminauth/internal/database/settings"
	"github.com/mrlokans/adminauth/internal/flow"
	"github.com/mrlokans/adminauth/internal/identity"
	"github.com/mrlokans/adminauth/internal/logging"
	"github.com/mrlokans/adminauth/internal/session"
	"github.com/mrlokans/adminauth/internal/settingsstore"
)

// maxAuthHops bounds guard redirects between auth pages.
const maxAuthHops = 4

var readPassword = term.ReadPassword

// AuthCommand runs one auth page in the terminal.
type AuthCommand struct {
	Mode         string
	Query        string
	DatabasePath string
	IdentityURL  string
	FormsFile    string
	Logout       bool

	In     io.Reader
	Out    io.Writer
	Logger zerolog.Logger

	cfg    *config.Config
	reader *bufio.Reader
}

// NewAuthCommand creates a new AuthCommand reading from stdin.
func NewAuthCommand() *AuthCommand {
	cfg := config.NewConfig()
	return &AuthCommand{
		In:     os.Stdin,
		Out:    os.Stdout,
		Logger: logging.New(cfg.Log),
		cfg:    cfg,
	}
}

// ParseFlags parses command line flags
func (cmd *AuthCommand) ParseFlags(args []string) error {
	if cmd.cfg == nil {
		cmd.cfg = config.NewConfig()
	}
	fs := flag.NewFlagSet("auth", flag.ContinueOnError)

	fs.StringVar(&cmd.Mode, "mode", string(flow.ModeLogin), "Auth page: login, register, register-admin, forgot-password, reset-password")
	fs.StringVar(&cmd.Query, "query", "", "Query string of the page, e.g. 'code=abc' or 'redirectTo=/settings'")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the database holding the session")
	fs.StringVar(&cmd.IdentityURL, "identity-url", cmd.cfg.Identity.BaseURL, "Base URL of the admin identity service")
	fs.StringVar(&cmd.FormsFile, "forms", cmd.cfg.Auth.FormsFile, "Optional YAML/JSON form overrides")
	fs.BoolVar(&cmd.Logout, "logout", false, "Clear the stored session and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s auth [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fill in and submit an admin auth form from the terminal.\n")
		fmt.Fprintf(os.Stderr, "Guard redirects between auth pages are followed automatically.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s auth\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s auth -mode=reset-password -query='code=abc'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s auth -logout\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := flow.ParseMode(cmd.Mode); err != nil {
		return err
	}
	if cmd.IdentityURL == "" {
		return errors.New("identity service URL required: set IDENTITY_BASE_URL or use -identity-url")
	}
	return nil
}

// Run mounts the page, prompts for its fields and submits it.
func (cmd *AuthCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return cmd.RunContext(ctx)
}

func (cmd *AuthCommand) RunContext(ctx context.Context) error {
	if cmd.cfg == nil {
		cmd.cfg = config.NewConfig()
	}
	if cmd.Out == nil {
		cmd.Out = io.Discard
	}
	if cmd.In == nil {
		cmd.In = os.Stdin
	}
	cmd.reader = bufio.NewReader(cmd.In)
	logger := logging.Component(cmd.Logger, "cli")

	db, err := database.NewDatabase(cmd.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	keyFile := cmd.cfg.Auth.SessionKeyFile
	if keyFile == "" {
		keyFile = filepath.Join(filepath.Dir(cmd.DatabasePath), crypto.KeyFileName)
	}
	sealer, generated, err := crypto.LoadSealer(cmd.cfg.Auth.SessionKey, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load session key: %w", err)
	}
	if generated {
		logger.Info().Str("file", keyFile).Msg("generated session key")
	}

	repo := settings.NewRepository(db.DB)
	store := session.NewLocalStore(repo, sealer)

	if cmd.Logout {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		fmt.Fprintln(cmd.Out, "Signed out.")
		return nil
	}

	admin := settingsstore.New(repo)
	client := identity.NewClient(config.Identity{
		BaseURL:     cmd.IdentityURL,
		Timeout:     cmd.cfg.Identity.Timeout,
		InitRetries: cmd.cfg.Identity.InitRetries,
	}, logger)

	if info, err := client.Init(ctx); err != nil {
		logger.Warn().Err(err).Msg("identity service unreachable, using stored admin state")
	} else if err := admin.RecordAdminCheck(info.HasAdmin, info.UUID, time.Now()); err != nil {
		logger.Warn().Err(err).Msg("failed to store admin state")
	}

	forms, err := config.LoadForms(cmd.FormsFile)
	if err != nil {
		return err
	}

	ctrl := flow.NewController(flow.Deps{
		Registry:  flow.NewRegistry(flow.DefaultForms(), forms),
		Transport: client,
		Session:   store,
		Navigator: terminalNavigator{out: cmd.Out},
		Admin:     admin,
		Redirect: flow.RedirectPolicy{
			Routes:    flow.DefaultRoutes(),
			LocalOnly: cmd.cfg.Auth.RedirectLocalOnly,
		},
		Locale:  terminalLocale{out: cmd.Out},
		Tracker: logTracker{log: logger},
		Tour:    store,
	}, flow.Options{
		NormalizeSubmitting: cmd.cfg.Auth.NormalizeSubmitting,
		RegistrationToRoot:  cmd.cfg.Auth.RegistrationToRoot,
		SuperAdminRole:      cmd.cfg.Auth.SuperAdminRole,
		Logger:              logger,
	})
	defer ctrl.Unmount()

	mounted, err := cmd.mount(ctx, ctrl)
	if err != nil || !mounted {
		return err
	}

	for {
		if err := cmd.fill(ctrl); err != nil {
			return err
		}
		if !ctrl.Validate() {
			cmd.printErrors(ctrl.State())
			return fmt.Errorf("invalid %s form", ctrl.Mode())
		}

		out, err := ctrl.Submit(ctx)
		if err != nil {
			return err
		}
		logger.Debug().
			Str("mode", out.Mode.String()).
			Str("outcome", out.Kind.String()).
			Int("status", out.Status).
			Msg("auth form submitted")

		if out.Phase != flow.PhaseFailed {
			if user, ok := store.UserInfo(); ok && out.Mode != flow.ModeForgotPassword {
				fmt.Fprintf(cmd.Out, "Signed in as %s.\n", user.Email)
			}
			return nil
		}

		cmd.printErrors(ctrl.State())
		if out.Mode != flow.ModeLogin || out.Kind != flow.KindGenericMessage || !cmd.confirm("Reset your password?") {
			return fmt.Errorf("%s failed", out.Mode)
		}
		target, err := ctrl.ChangeMode(string(flow.ModeForgotPassword), "")
		if err != nil {
			return err
		}
		if target != nil {
			fmt.Fprintf(cmd.Out, "Redirected to %s\n", target)
			return nil
		}
	}
}

// mount opens the requested page, following guard redirects that land on
// other auth pages. It reports false when the guard leaves the auth area.
func (cmd *AuthCommand) mount(ctx context.Context, ctrl *flow.Controller) (bool, error) {
	mode, query := cmd.Mode, cmd.Query
	for hop := 0; ; hop++ {
		target, err := ctrl.Mount(ctx, mode, query)
		if err != nil {
			return false, err
		}
		if target == nil {
			return true, nil
		}

		fmt.Fprintf(cmd.Out, "Redirected to %s\n", target)
		next, ok := authPage(*target)
		if !ok || hop >= maxAuthHops {
			return false, nil
		}
		mode, query = next, target.Search
	}
}

func authPage(t flow.Target) (string, bool) {
	rest, ok := strings.CutPrefix(t.Pathname, "/auth/")
	if !ok {
		return "", false
	}
	if _, err := flow.ParseMode(rest); err != nil {
		return "", false
	}
	return rest, true
}

// fill prompts for every schema field of the mounted page.
func (cmd *AuthCommand) fill(ctrl *flow.Controller) error {
	d := ctrl.Descriptor()
	fmt.Fprintf(cmd.Out, "%s\n", strings.ToUpper(string(d.Mode)))

	data := ctrl.State().ModifiedData
	for _, f := range d.Schema.Fields {
		current, _ := flow.Lookup(data, f.Name)
		if d.Disabled(f.Name) && current != nil && current != "" {
			fmt.Fprintf(cmd.Out, "%s: %v\n", label(f.Name), current)
			continue
		}

		raw, err := cmd.prompt(f)
		if err != nil {
			return err
		}
		if raw == "" && current != nil {
			continue
		}
		ctrl.Change(f.Name, d.Schema.Coerce(f.Name, raw))
	}
	return nil
}

func (cmd *AuthCommand) prompt(f flow.FieldSpec) (string, error) {
	_, isBool := f.Default.(bool)
	switch {
	case isBool:
		fmt.Fprintf(cmd.Out, "%s [y/N]: ", label(f.Name))
	default:
		fmt.Fprintf(cmd.Out, "%s: ", label(f.Name))
	}

	if isSecret(f.Name) {
		if file, ok := cmd.In.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			secret, err := readPassword(int(file.Fd()))
			fmt.Fprintln(cmd.Out)
			if err != nil {
				return "", fmt.Errorf("failed to read %s: %w", label(f.Name), err)
			}
			return string(secret), nil
		}
	}

	line, err := cmd.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s: %w", label(f.Name), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question. Closed input answers no.
func (cmd *AuthCommand) confirm(question string) bool {
	fmt.Fprintf(cmd.Out, "%s [y/N]: ", question)
	line, err := cmd.reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(cmd.Out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (cmd *AuthCommand) printErrors(state flow.State) {
	errs := state.FormErrors
	if msg := errs.ErrorMessage(); msg != "" {
		fmt.Fprintf(cmd.Out, "Error: %s\n", msg)
	}
	if state.RequestError != nil {
		fmt.Fprintf(cmd.Out, "Error: %s (status %d)\n", state.RequestError.Message, state.RequestError.Status)
	}

	fields := make([]string, 0, len(errs))
	for name := range errs {
		if name == flow.KeyErrorMessage || name == flow.KeyAPIErrors {
			continue
		}
		fields = append(fields, name)
	}
	for name, msg := range errs.APIErrors() {
		if _, dup := errs[name]; !dup {
			errs[name] = msg
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	for _, name := range fields {
		fmt.Fprintf(cmd.Out, "  %s: %v\n", label(name), errs[name])
	}
}

func label(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func isSecret(name string) bool {
	return strings.Contains(strings.ToLower(label(name)), "password")
}

type terminalNavigator struct {
	out io.Writer
}

func (n terminalNavigator) Navigate(t flow.Target) {
	fmt.Fprintf(n.out, "Next: %s\n", t)
}

type terminalLocale struct {
	out io.Writer
}

func (l terminalLocale) ChangeLocale(code string) {
	fmt.Fprintf(l.out, "Interface language: %s\n", code)
}

type logTracker struct {
	log zerolog.Logger
}

func (t logTracker) Track(event string) {
	t.log.Info().Str("event", event).Msg("usage event")
}
