package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/apiclient"
	appcfg "github.com/park285/tictactoe-client/internal/config"
	"github.com/park285/tictactoe-client/internal/msgcat"
	"github.com/park285/tictactoe-client/internal/obslog"
	"github.com/park285/tictactoe-client/internal/presenter"
)

type app struct {
	cfg       *appcfg.AppConfig
	client    *apiclient.Client
	cat       *msgcat.Catalog
	presenter *presenter.Presenter
	logger    *zap.Logger
	in        io.Reader
	out       io.Writer
}

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.Named("ttt-client")

	args := os.Args[1:]
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		fmt.Fprint(os.Stdout, helpText())
		return
	}

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init error", zap.Error(err))
	}

	if err := a.run(ctx, strings.ToLower(args[0]), args[1:]); err != nil {
		logger.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		obslog.Sync()
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *appcfg.AppConfig, logger *zap.Logger) (*app, error) {
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, err
	}
	client := apiclient.NewClient(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithRetry(cfg.HTTPRetry),
		apiclient.WithLogger(logger.Named("api")),
	)
	if cfg.HasCredentials() {
		sess, err := client.Login(ctx, cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("login as %s: %w", cfg.Username, err)
		}
		client = client.WithSession(sess)
		logger.Info("logged_in", zap.String("user_id", string(sess.Identity())))
	}

	a := &app{cfg: cfg, client: client, cat: cat, logger: logger, in: os.Stdin, out: os.Stdout}
	a.presenter = presenter.NewPresenter(cat, presenter.NewPNGRenderer(), a.printText, a.imageSink())
	return a, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "lobby":
		return a.lobby(ctx, args)
	case "leaderboard":
		return a.leaderboard(ctx)
	case "register":
		return a.register(ctx, args)
	case "create":
		return a.create(ctx, args)
	case "play":
		return a.openMatch(ctx, args, true)
	case "watch":
		return a.openMatch(ctx, args, false)
	case "relay":
		return a.relay(ctx, args)
	case "history":
		return a.history(ctx, args)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func (a *app) printText(message string) error {
	_, err := fmt.Fprintln(a.out, strings.TrimRight(message, "\n"))
	return err
}

func (a *app) imageSink() func([]byte) error {
	if a.cfg.BoardPNG == "" {
		return nil
	}
	path := a.cfg.BoardPNG
	return func(png []byte) error {
		return os.WriteFile(path, png, 0o644)
	}
}

func helpText() string {
	return strings.Join([]string{
		"ttt-client: tic-tac-toe terminal client",
		"",
		"  lobby [-f]                  list active games (-f follows lobby pushes)",
		"  leaderboard                 show rankings and your stats",
		"  register <user> <email> <password>",
		"  create [ai | human <user-id>]",
		"  play <game-id>              play; type a cell number 0-8, 'r' reloads, 'q' quits",
		"  watch <game-id>             observe a game",
		"  relay <game-id>             forward websocket updates to redis",
		"  history [limit]             list archived results (needs DATABASE_URL)",
		"",
		"Configuration comes from TTT_* environment variables or the yaml file in TTT_CONFIG.",
		"",
	}, "\n")
}
