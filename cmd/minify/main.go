package main

import (
	"os"

	"github.com/woozymasta/dzpool/assets"
	"github.com/woozymasta/dzpool/internal/config"
	"github.com/woozymasta/dzpool/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file (attribution source)"`
	Output     string `short:"o" long:"out"    description:"Output file path" default:"assets/index.html"`
	Title      string `short:"t" long:"title"  description:"Page title" default:"dzpool"`
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

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	page, err := assets.Build(opts.Title, cfg.Attribution)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build viewer page")
	}

	if err := os.WriteFile(opts.Output, page, 0644); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write viewer page")
	}

	log.Info().
		Str("path", opts.Output).
		Int("bytes", len(page)).
		Msg("Minify done")
}
