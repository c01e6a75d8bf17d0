package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ericogr/idlerpg-arena/internal/api"
	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/discord"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/service"
	"github.com/ericogr/idlerpg-arena/internal/settlement"
	"github.com/ericogr/idlerpg-arena/internal/slots"
	"github.com/ericogr/idlerpg-arena/internal/stats"
	"github.com/ericogr/idlerpg-arena/internal/telemetry"
	"github.com/ericogr/idlerpg-arena/internal/version"
)

const settleBackoff = 200 * time.Millisecond

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := loadConfigOrExit()
	logging.SetLevel(cfg.Logging.Level)
	defer logging.Sync()
	logging.Info("starting", logging.Fields{"version": version.Get().String()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Enabled)
	if err != nil {
		logging.Fatal("Failed to set up tracing", err, nil)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logging.Warn("tracing shutdown failed", logging.Fields{"error": err.Error()})
		}
	}()

	repo := createRepositoryOrExit(cfg)
	tables := loadTablesOrExit(cfg)
	resolver := stats.NewResolver(repo)
	settler := settlement.New(repo,
		settlement.WithRetry(cfg.Battle.SettleAttempts, settleBackoff),
		settlement.WithEggHatch(cfg.Pets.HatchAfter),
	)
	recoverEscrows(ctx, settler, cfg)

	token := os.Getenv(constants.EnvDiscordToken)
	session, err := discord.NewSession(token)
	if err != nil {
		logging.Fatal("Failed to create discord session", err, nil)
	}
	sender := discord.NewSessionSender(session)
	collector := discord.NewCollector()

	machine := slots.New(cfg.SlotMachine(), repo, resolver, slots.WithNotifier(discord.NewNotifier(sender, cfg.Discord.OperatorChannelID)))
	if err := machine.Init(ctx); err != nil {
		logging.Fatal("Failed to initialize slot seats", err, nil)
	}
	svc, err := service.New(cfg, repo, resolver, settler, tables)
	if err != nil {
		logging.Fatal("Failed to build game service", err, nil)
	}
	tasks := service.NewTasks(cfg, repo, machine)

	sessions, err := api.NewSessions(os.Getenv(constants.EnvSessionSecret), cfg.Auth.SessionTTL)
	if err != nil {
		logging.Fatal("Failed to set up sessions", err, nil)
	}
	auth := api.NewAuthHandler(sessions,
		os.Getenv(constants.EnvDiscordClientID),
		os.Getenv(constants.EnvDiscordClientSecret),
		cfg.Server.PublicURL+constants.RouteAuthDiscordCallBack,
		cfg.IsGM,
	)
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.NewStatusHandler(repo, machine), auth, sessions, cfg.IsGM)
	srv := &http.Server{Addr: cfg.Server.Address, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tasks.Run(gctx) })
	g.Go(func() error { return serveHTTP(gctx, srv) })
	if token != "" {
		bot := discord.NewBot(session, discord.NewRouter(svc, machine, sender, collector), collector, cfg.Discord.GuildID)
		g.Go(func() error { return bot.Run(gctx) })
	} else {
		logging.Warn("DISCORD_TOKEN not set; running without the bot", nil)
	}

	if err := g.Wait(); err != nil {
		logging.Error("shutting down", err, nil)
		return
	}
	logging.Info("stopped", nil)
}
