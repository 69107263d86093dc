// Package cli implements the camera command line: account commands, analyze
// and history browsing on top of the orchestrator.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"

	apphistory "github.com/bryanwahyu/research-camera/internal/application/history"
	"github.com/bryanwahyu/research-camera/internal/application/orchestrator"
	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
	"github.com/bryanwahyu/research-camera/internal/domain/history"
	"github.com/bryanwahyu/research-camera/internal/logger"
	"github.com/bryanwahyu/research-camera/internal/middleware"
	"github.com/bryanwahyu/research-camera/internal/ui"
)

// MaxImageBytes matches the server's default upload limit.
const MaxImageBytes = 10 << 20

// ErrUsage is returned for bad arguments; the usage text was already printed.
var ErrUsage = errors.New("usage error")

// ErrUnhealthy is returned by status when any check fails.
var ErrUnhealthy = errors.New("one or more checks failed")

type App struct {
	Orch    *orchestrator.Orchestrator
	History *apphistory.Service
	Display *ui.Display
	Log     *logger.Logger

	// Checks run by the status command, keyed by name.
	Checks map[string]middleware.HealthChecker

	In  io.Reader
	Out io.Writer
	// ReadPassword prompts for a secret; nil means read from the terminal.
	ReadPassword func(prompt string) (string, error)
}

const usage = `usage: camera <command> [flags]

commands:
  signup  -email E -name N [-password P]
  login   -email E [-password P]
  logout
  whoami
  status
  analyze [-mode M] [-audience A] [-save-as E [-password P]] IMAGE [IMAGE2]
  history list | show N|ID | delete N|ID | clear
`

// Run executes one command. args excludes the program name.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.Out, usage)
		return ErrUsage
	}
	if a.Log == nil {
		a.Log = logger.Nop()
	}
	a.Orch.Init(ctx)

	cmd, rest := args[0], args[1:]
	a.Log.Debug().Str("command", cmd).Bool("logged_in", a.Orch.User() != nil).Msg("run")
	switch cmd {
	case "signup":
		return a.signup(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := a.Orch.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.Out, "Logged out.")
		return nil
	case "whoami":
		return a.Display.User(a.Orch.User())
	case "status":
		return a.status(ctx)
	case "analyze":
		return a.analyze(ctx, rest)
	case "history":
		return a.history(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.Out, usage)
		return nil
	}
	fmt.Fprintf(a.Out, "unknown command %q\n\n%s", cmd, usage)
	return ErrUsage
}

func (a *App) status(ctx context.Context) error {
	names := make([]string, 0, len(a.Checks))
	for name := range a.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := false
	for _, name := range names {
		if err := a.Checks[name].Check(ctx); err != nil {
			failed = true
			fmt.Fprintf(a.Out, "%-10s FAIL  %v\n", name, err)
			continue
		}
		fmt.Fprintf(a.Out, "%-10s ok\n", name)
	}
	if failed {
		return ErrUnhealthy
	}
	return nil
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

func (a *App) signup(ctx context.Context, args []string) error {
	fs := a.flags("signup")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	pw, err := a.password(*password, "Choose a password: ")
	if err != nil {
		return err
	}
	u, err := a.Orch.Signup(ctx, *email, pw, *name)
	if err != nil {
		return err
	}
	return a.Display.User(&u)
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	pw, err := a.password(*password, "Password: ")
	if err != nil {
		return err
	}
	u, err := a.Orch.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	return a.Display.User(&u)
}

func (a *App) analyze(ctx context.Context, args []string) error {
	fs := a.flags("analyze")
	modeFlag := fs.String("mode", "", "explain | research | teach")
	audienceFlag := fs.String("audience", "", "child | student | college | expert")
	saveAs := fs.String("save-as", "", "log in as this email to save when not logged in")
	password := fs.String("password", "", "password for -save-as (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	paths := fs.Args()
	if len(paths) == 0 || len(paths) > analysis.MaxImages {
		fmt.Fprintln(a.Out, "analyze needs one image, or two to compare")
		return ErrUsage
	}

	mode, err := analysis.ParseMode(*modeFlag)
	if err != nil {
		return err
	}
	audience, err := analysis.ParseAudience(*audienceFlag)
	if err != nil {
		return err
	}
	a.Orch.SetMode(mode)
	a.Orch.SetAudience(audience)
	if len(paths) == 2 {
		a.Orch.SetInputMode(analysis.InputCompare)
	}

	for i, p := range paths {
		img, err := readImage(p)
		if err != nil {
			return err
		}
		if err := a.Orch.SetImage(orchestrator.Slot(i), &img, p); err != nil {
			return err
		}
	}

	st, err := a.Orch.Analyze(ctx)
	if err != nil {
		return err
	}
	switch s := st.(type) {
	case orchestrator.Failed:
		_ = a.Display.Failure(s.Message)
		if s.Kind == orchestrator.FailureQuota {
			return analysis.ErrQuotaExceeded
		}
		return &analysis.FailedError{Message: s.Message}
	case orchestrator.Succeeded:
		if err := a.Display.Result(s.Result, mode, audience, s.Saved); err != nil {
			return err
		}
		if s.Saved || *saveAs == "" {
			return nil
		}
	default:
		return fmt.Errorf("analysis ended in state %s", st)
	}

	// manual save: the auth prompt comes first when no session is active
	err = a.Orch.Save(ctx)
	if errors.Is(err, orchestrator.ErrLoginRequired) {
		pw, perr := a.password(*password, fmt.Sprintf("Password for %s: ", *saveAs))
		if perr != nil {
			return perr
		}
		if _, lerr := a.Orch.Login(ctx, *saveAs, pw); lerr != nil {
			return lerr
		}
		err = a.Orch.Save(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Saved to history.")
	return nil
}

func (a *App) history(ctx context.Context, args []string) error {
	u := a.Orch.User()
	if u == nil {
		fmt.Fprintln(a.Out, "Log in to see your history.")
		return orchestrator.ErrLoginRequired
	}
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list":
		return a.Display.HistoryList(a.Orch.History())
	case "show":
		item, err := a.pick(args)
		if err != nil {
			return err
		}
		a.Orch.LoadHistoryItem(item)
		st, _ := a.Orch.State().(orchestrator.Succeeded)
		return a.Display.Result(st.Result, a.Orch.Mode(), a.Orch.Audience(), st.Saved)
	case "delete":
		item, err := a.pick(args)
		if err != nil {
			return err
		}
		if err := a.History.Delete(ctx, u.ID, item.ID); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Deleted %s.\n", item.ID)
		return nil
	case "clear":
		n, err := a.History.Clear(ctx, u.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Removed %d item(s).\n", n)
		return nil
	}
	fmt.Fprintf(a.Out, "unknown history command %q\n", sub)
	return ErrUsage
}

// pick resolves args[1] as a 1-based list position or an item id.
func (a *App) pick(args []string) (history.Item, error) {
	if len(args) < 2 {
		fmt.Fprintln(a.Out, "which item? pass its number or id")
		return history.Item{}, ErrUsage
	}
	items := a.Orch.History()
	ref := args[1]
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(items) {
		return items[n-1], nil
	}
	for _, it := range items {
		if string(it.ID) == ref {
			return it, nil
		}
	}
	return history.Item{}, apphistory.ErrNotFound
}

func (a *App) password(given, prompt string) (string, error) {
	if given != "" {
		return given, nil
	}
	if a.ReadPassword != nil {
		return a.ReadPassword(prompt)
	}
	fmt.Fprint(a.Out, prompt)
	if f, ok := a.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.Out)
		return string(b), err
	}
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readImage(path string) (analysis.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.Image{}, err
	}
	mime, err := middleware.ValidateImage(path, data, MaxImageBytes)
	if err != nil {
		return analysis.Image{}, err
	}
	return analysis.Image{Name: filepath.Base(path), MimeType: mime, Data: data}, nil
}
