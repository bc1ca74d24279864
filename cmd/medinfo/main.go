// Command medinfo is a terminal client for the medicine information API.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jwalitptl/medinfo-api/internal/client"
	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/session"
)

const usage = `Usage: medinfo [--api URL] [--session FILE] <command> [args]

Commands:
  search <name> [--lang xx]                  look up a medicine
  scan <image>                               read a prescription image
  register --name N --email E --password P   create an account
  login --email E --password P               sign in
  logout                                     sign out
  chat <message>                             ask the symptom assistant
  pharmacies --lat X --lng Y | --near PLACE  list nearby pharmacies
  status                                     show login state and scans left
`

// errLimitReached is returned when an anonymous session has used its scans.
var errLimitReached = stderrors.New("free scan limit reached, please log in or register to continue")

type app struct {
	api   *client.Client
	store session.Store
	sess  *session.Session
	out   io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("medinfo", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.Usage = func() { fmt.Fprint(out, usage) }
	apiURL := global.String("api", defaultAPIURL(), "API base URL")
	sessionPath := global.String("session", "", "session file (default: user config dir)")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return nil
	}

	path := *sessionPath
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	store := session.NewFileStore(path)
	sess, err := store.Load(ctx)
	if err != nil {
		return err
	}

	a := &app{api: client.New(*apiURL, nil), store: store, sess: sess, out: out}
	if sess.LoggedIn() {
		a.api.SetToken(sess.Token)
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "search":
		return a.search(ctx, rest)
	case "scan":
		return a.scan(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "chat":
		return a.chat(ctx, rest)
	case "pharmacies":
		return a.pharmacies(ctx, rest)
	case "status":
		renderStatus(a.out, a.sess)
		return nil
	case "help":
		global.Usage()
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func defaultAPIURL() string {
	if v := os.Getenv("MEDINFO_API_URL"); v != "" {
		return v
	}
	return "http://localhost:5000"
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := newFlagSet("search")
	lang := fs.String("lang", "", "response language (e.g. hi, es)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if name == "" {
		return stderrors.New("medicine name is required")
	}
	if !a.sess.CanScan() {
		return errLimitReached
	}

	rec, err := a.api.Medicine(ctx, name, *lang)
	if err != nil {
		return err
	}
	renderMedicine(a.out, rec)
	return a.recordScan(ctx)
}

func (a *app) scan(ctx context.Context, args []string) error {
	fs := newFlagSet("scan")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return stderrors.New("exactly one image path is required")
	}
	if !a.sess.CanScan() {
		return errLimitReached
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := a.api.Scan(ctx, filepath.Base(f.Name()), f)
	if err != nil {
		return err
	}
	renderScan(a.out, res)
	return a.recordScan(ctx)
}

func (a *app) recordScan(ctx context.Context) error {
	a.sess.RecordScan()
	if err := a.store.Save(ctx, a.sess); err != nil {
		return err
	}
	if !a.sess.LoggedIn() {
		fmt.Fprintf(a.out, "\n%d free scans remaining.\n", a.sess.RemainingScans())
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (at least 6 characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := a.api.Register(ctx, &model.RegisterRequest{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	return a.signedIn(ctx, resp)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := a.api.Login(ctx, &model.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	return a.signedIn(ctx, resp)
}

func (a *app) signedIn(ctx context.Context, resp *model.AuthResponse) error {
	a.sess.Login(resp.User, resp.Token)
	if err := a.store.Save(ctx, a.sess); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", displayName(resp.User))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	a.sess.Logout()
	if err := a.store.Save(ctx, a.sess); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	msg := strings.TrimSpace(strings.Join(args, " "))
	if msg == "" {
		return stderrors.New("message is required")
	}
	reply, err := a.api.Chat(ctx, msg)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, reply)
	return nil
}

func (a *app) pharmacies(ctx context.Context, args []string) error {
	fs := newFlagSet("pharmacies")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	near := fs.String("near", "", "place name to search around")
	radius := fs.Int("radius", 0, "search radius in meters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		res *model.PharmacySearchResult
		err error
	)
	switch {
	case fs.Changed("lat") || fs.Changed("lng"):
		if !fs.Changed("lat") || !fs.Changed("lng") {
			return stderrors.New("both --lat and --lng are required")
		}
		res, err = a.api.Pharmacies(ctx, *lat, *lng, *radius)
	case strings.TrimSpace(*near) != "":
		res, err = a.api.PharmaciesNear(ctx, *near, *radius)
	default:
		return stderrors.New("either --lat/--lng or --near is required")
	}
	if err != nil {
		return err
	}
	renderPharmacies(a.out, res)
	return nil
}
