// Command equiterm is a terminal client for the equity research backend:
// authenticate, submit source URLs for analysis, and converse with the
// analyzed corpus over the chat, viz and excel surfaces.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvoskan/equiterm/internal/authtoken"
	"github.com/nvoskan/equiterm/internal/backend"
	"github.com/nvoskan/equiterm/internal/config"
	"github.com/nvoskan/equiterm/internal/convstore"
	"github.com/nvoskan/equiterm/internal/credstore"
	"github.com/nvoskan/equiterm/internal/errs"
	"github.com/nvoskan/equiterm/internal/gateway"
	"github.com/nvoskan/equiterm/internal/model"
	"github.com/nvoskan/equiterm/internal/session"
	"github.com/nvoskan/equiterm/internal/sessionmon"
	"github.com/nvoskan/equiterm/internal/storage"
	"github.com/nvoskan/equiterm/internal/surface"
	"github.com/nvoskan/equiterm/internal/validate"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app bundles the wired components for command handlers.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	creds  *credstore.Store
	conv   *convstore.Store
	ctl    *session.Controller
	api    *backend.Client
	runner *surface.Runner
}

func usage() {
	fmt.Fprintf(os.Stderr, `equiterm - equity research client
Usage:
  equiterm [-v] [-base-url URL] <cmd> [args]

Commands:
  version
  register    -u <username> -e <email>            (mails a verification code)
  verify-otp  -e <email> -otp <code> -p <password> (completes signup, saves token)
  login       -i <identifier> -p <password>        (saves token)
  logout
  status
  urls        [list | add <url>... | clear]
  analyze     [url...]                             (uses stored urls when none given)
  ask         <question...>
  viz         <chart description...>
  excel       <export description...>
  history     [-surface chat|viz|excel]
  reset                                            (discards the workspace)
  chat                                             (interactive session)
`)
	os.Exit(2)
}

// main parses global flags, wires the component graph and dispatches the
// subcommand.
func main() {
	verbose := flag.Bool("v", false, "debug logging")
	baseURL := flag.String("base-url", "", "backend base URL (overrides env)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	cfg := config.Load()
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}

	logger := newLogger(*verbose)
	defer func() { _ = logger.Sync() }()

	kv := storage.New(cfg.StateDir, logger)
	creds := credstore.New(kv, logger)
	conv := convstore.New(kv, logger)
	mon := sessionmon.New(cfg.SessionTimeout, creds, logger)
	ctl := session.New(creds, conv, mon, logger)

	gw := gateway.New(cfg, creds, logger)
	gw.OnAuthExpired(func() {
		ctl.HandleAuthExpired()
		fmt.Fprintln(os.Stderr, warnStyle.Render("Session expired. Please login again."))
	})
	api := backend.New(gw)

	a := &app{
		cfg:    cfg,
		log:    logger,
		creds:  creds,
		conv:   conv,
		ctl:    ctl,
		api:    api,
		runner: surface.New(conv, api, logger),
	}

	switch cmd {
	case "version":
		fmt.Printf("equiterm %s (%s)\n", version, buildDate)
	case "register":
		a.cmdRegister(args)
	case "verify-otp":
		a.cmdVerifyOTP(args)
	case "login":
		a.cmdLogin(args)
	case "logout":
		a.ctl.Logout()
		fmt.Println("logged out")
	case "status":
		a.cmdStatus()
	case "urls":
		a.cmdURLs(args)
	case "analyze":
		a.cmdAnalyze(args)
	case "ask":
		a.cmdSurface(model.SurfaceChat, args)
	case "viz":
		a.cmdSurface(model.SurfaceViz, args)
	case "excel":
		a.cmdSurface(model.SurfaceExcel, args)
	case "history":
		a.cmdHistory(args)
	case "reset":
		a.cmdReset()
	case "chat":
		a.cmdChat()
	default:
		usage()
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
	os.Exit(1)
}

// apiContext bounds one-shot commands; the HTTP client enforces the per-call
// timeout, this just keeps runaway retries impossible.
func (a *app) apiContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.APITimeout+5*time.Second)
}

func (a *app) requireAuth() {
	if !a.ctl.IsAuthenticated() {
		fail(errs.ErrNotAuthenticated)
	}
}

func (a *app) requireWorkspace() *model.Analysis {
	analysis := a.conv.Analysis()
	if analysis == nil {
		fail(errors.New("no analyzed workspace (add urls and run 'equiterm analyze' first)"))
	}
	return analysis
}

// ---- auth commands ----

func (a *app) cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	_ = fs.Parse(args)

	if err := validate.Username(*username); err != nil {
		fail(err)
	}
	if !validate.Email(*email) {
		fail(fmt.Errorf("%w: invalid email address", errs.ErrValidation))
	}

	ctx, cancel := a.apiContext()
	defer cancel()
	if err := a.api.Register(ctx, *username, *email); err != nil {
		fail(err)
	}
	fmt.Printf("verification code sent to %s; finish with 'equiterm verify-otp'\n", *email)
}

func (a *app) cmdVerifyOTP(args []string) {
	fs := flag.NewFlagSet("verify-otp", flag.ExitOnError)
	email := fs.String("e", "", "email")
	otp := fs.String("otp", "", "6-digit code")
	password := fs.String("p", "", "password")
	_ = fs.Parse(args)

	if !validate.Email(*email) {
		fail(fmt.Errorf("%w: invalid email address", errs.ErrValidation))
	}
	if !validate.OTP(*otp) {
		fail(fmt.Errorf("%w: code must be exactly 6 digits", errs.ErrValidation))
	}
	if err := validate.Password(*password); err != nil {
		fail(err)
	}

	ctx, cancel := a.apiContext()
	defer cancel()
	resp, err := a.api.VerifyOTP(ctx, *email, *otp, *password)
	if err != nil {
		fail(err)
	}
	a.ctl.Login(resp.Token, resp.User)
	fmt.Println(okStyle.Render("account verified, logged in"))
}

func (a *app) cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	identifier := fs.String("i", "", "username or email")
	password := fs.String("p", "", "password")
	_ = fs.Parse(args)
	if *identifier == "" || *password == "" {
		fail(fmt.Errorf("%w: need -i and -p", errs.ErrValidation))
	}

	ctx, cancel := a.apiContext()
	defer cancel()
	resp, err := a.api.Login(ctx, *identifier, *password)
	if err != nil {
		fail(err)
	}
	a.ctl.Login(resp.Token, resp.User)
	fmt.Println(okStyle.Render("logged in"))
}

func (a *app) cmdStatus() {
	if !a.ctl.IsAuthenticated() {
		fmt.Println("not logged in")
		return
	}
	if u := a.ctl.User(); u != nil {
		fmt.Printf("logged in as %s\n", u.Username)
	} else {
		fmt.Println("logged in")
	}
	if claims, err := authtoken.Payload(a.creds.Token()); err == nil && claims.ExpiresAt != nil {
		fmt.Printf("token expires %s\n", claims.ExpiresAt.Time.Local().Format(time.RFC1123))
	}
	if analysis := a.conv.Analysis(); analysis != nil {
		fmt.Printf("workspace index: %s\n", analysis.IndexName)
		for _, s := range model.Surfaces {
			fmt.Printf("  %-5s %d messages\n", s, len(a.conv.Get(s)))
		}
	} else {
		fmt.Println("no analyzed workspace")
	}
}

// ---- workspace commands ----

func (a *app) cmdURLs(args []string) {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		urls := a.conv.URLs()
		if len(urls) == 0 {
			fmt.Println("no source urls")
			return
		}
		for i, u := range urls {
			fmt.Printf("%2d  %s\n", i+1, u)
		}
	case "add":
		valid, problems := validate.URLs(args[1:])
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, warnStyle.Render(p))
		}
		if len(valid) == 0 {
			fail(fmt.Errorf("%w: no valid urls given", errs.ErrValidation))
		}
		a.conv.SetURLs(append(a.conv.URLs(), valid...))
		fmt.Printf("%d url(s) added\n", len(valid))
	case "clear":
		a.conv.SetURLs(nil)
		fmt.Println("source urls cleared")
	default:
		fail(fmt.Errorf("unknown urls subcommand %q", sub))
	}
}

func (a *app) cmdAnalyze(args []string) {
	a.requireAuth()

	urls := args
	if len(urls) == 0 {
		urls = a.conv.URLs()
	}
	valid, problems := validate.URLs(urls)
	for _, p := range problems {
		fmt.Fprintln(os.Stderr, warnStyle.Render(p))
	}
	if len(valid) == 0 {
		fail(fmt.Errorf("%w: please enter at least one URL", errs.ErrValidation))
	}

	fmt.Println("Scraping, indexing & analyzing...")
	// Analysis runs long on the backend; give it room beyond the API timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	analysis, err := a.api.Analyze(ctx, valid)
	if err != nil {
		fail(err)
	}
	a.conv.SetURLs(valid)
	a.conv.SetAnalysis(analysis)

	fmt.Println(okStyle.Render("Analysis complete."))
	fmt.Println()
	fmt.Println(summaryBanner(analysis.Summary))
}

func (a *app) cmdSurface(s model.Surface, args []string) {
	a.requireAuth()
	a.requireWorkspace()

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		fail(fmt.Errorf("%w: empty question", errs.ErrValidation))
	}

	ctx, cancel := a.apiContext()
	defer cancel()
	reply, ok := a.runner.Submit(ctx, s, question)
	if !ok {
		fail(errors.New("nothing submitted (busy surface or workspace changed)"))
	}
	fmt.Println(renderMessage(*reply))
	a.saveAttachments(reply)
}

func (a *app) cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	surfaceName := fs.String("surface", "", "chat|viz|excel (default: all)")
	_ = fs.Parse(args)

	analysis := a.requireWorkspace()

	surfaces := model.Surfaces
	if *surfaceName != "" {
		s := model.Surface(*surfaceName)
		if !s.Valid() {
			fail(fmt.Errorf("unknown surface %q", *surfaceName))
		}
		surfaces = []model.Surface{s}
	}

	for _, s := range surfaces {
		fmt.Println(renderTranscript(s, a.conv.Get(s), analysis))
	}
}

func (a *app) cmdReset() {
	fmt.Print("Start a new analysis? This will clear your current chats and analysis data. [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer != "y" && answer != "yes" {
		fmt.Println("aborted")
		return
	}
	a.conv.Discard()
	fmt.Println("workspace discarded")
}
