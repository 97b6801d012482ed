package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/dzpool/internal/config"
	"github.com/woozymasta/dzpool/internal/logger"
	"github.com/woozymasta/dzpool/internal/server"
	"github.com/woozymasta/dzpool/internal/session"
	"github.com/woozymasta/dzpool/internal/surface/memory"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile   string        `short:"c" long:"config"        env:"CONFIG_FILE"    description:"Path to configuration file (built-in defaults if empty)"`
	Addr         string        `short:"a" long:"addr"          env:"LISTEN_ADDRESS" description:"Address to listen on"         default:"0.0.0.0"`
	Port         int           `short:"p" long:"port"          env:"LISTEN_PORT"    description:"Port to listen on"            default:"8080"`
	Capacity     int           `short:"n" long:"capacity"      env:"POOL_CAPACITY"  description:"Override marker pool capacity"`
	Latency      time.Duration `short:"l" long:"latency"       env:"MARKER_LATENCY" description:"Simulated marker creation latency"`
	ReadyTimeout time.Duration `long:"ready-timeout"           env:"READY_TIMEOUT"  description:"Map setup timeout"            default:"30s"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Capacity > 0 {
		cfg.Pool.Capacity = opts.Capacity
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the map session
	hub := server.NewHub()
	setupCtx, cancel := context.WithTimeout(ctx, opts.ReadyTimeout)
	sess, err := session.Open(setupCtx,
		memory.NewProvider(memory.Options{Latency: opts.Latency}),
		nil,
		cfg,
		session.Options{OnClick: hub.Broadcast})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open map session")
	}

	srvCtx, err := server.NewServerContext(cfg, sess, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.RequestLogger(srvCtx.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")

		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Int("capacity", sess.Capacity()).
		Str("session", sess.ID()).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	if err := sess.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close map session")
	}
}
