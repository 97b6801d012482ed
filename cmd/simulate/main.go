package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/woozymasta/dzpool/internal/config"
	"github.com/woozymasta/dzpool/internal/export"
	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/logger"
	"github.com/woozymasta/dzpool/internal/recycle"
	"github.com/woozymasta/dzpool/internal/render"
	"github.com/woozymasta/dzpool/internal/session"
	"github.com/woozymasta/dzpool/internal/surface/memory"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"   env:"CONFIG_FILE"    description:"Path to configuration file (built-in defaults if empty)"`
	Output     string        `short:"o" long:"out"      description:"Report path, .zst suffix compresses. Writes to stdout if empty"`
	Format     string        `short:"f" long:"format"   description:"Report format" choice:"json" choice:"yaml" default:"json"`
	Snapshot   string        `short:"s" long:"snapshot" description:"Write a webp snapshot of the final state to this path"`
	Points     []string      `short:"P" long:"point"    description:"Recycle this lat,lng list after the rounds (repeatable)"`
	Rounds     int           `short:"r" long:"rounds"   env:"ROUNDS"         description:"Number of again rounds after the initial placement" default:"1"`
	Clicks     int           `short:"k" long:"clicks"   env:"CLICKS"         description:"Number of simulated clicks after the rounds" default:"0"`
	Capacity   int           `short:"n" long:"capacity" env:"POOL_CAPACITY"  description:"Override marker pool capacity"`
	Seed       uint64        `long:"seed"               env:"SEED"           description:"Override generator seed"`
	Latency    time.Duration `short:"l" long:"latency"  env:"MARKER_LATENCY" description:"Simulated marker creation latency"`
	Fit        bool          `long:"fit"                description:"Fit the camera to the --point list"`
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
	if opts.Capacity > 0 {
		cfg.Pool.Capacity = opts.Capacity
	}
	if opts.Seed != 0 {
		cfg.Generator.Seed = opts.Seed
	}

	custom, err := parsePoints(opts.Points)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --point value")
	}

	var clicks []session.ClickEvent
	sess, err := session.Open(context.Background(),
		memory.NewProvider(memory.Options{Latency: opts.Latency}),
		nil,
		cfg,
		session.Options{OnClick: func(ev session.ClickEvent) { clicks = append(clicks, ev) }})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open map session")
	}
	defer func() { _ = sess.Close() }()

	rounds := []recycle.Result{sess.LastRecycle()}
	for i := 0; i < opts.Rounds; i++ {
		rounds = append(rounds, sess.Again())
	}
	if custom != nil {
		rounds = append(rounds, sess.Recycle(custom, opts.Fit))
	}

	for i := 0; i < opts.Clicks; i++ {
		if _, ok := sess.SimulateClick(); !ok {
			break
		}
	}

	log.Info().
		Str("session", sess.ID()).
		Int("rounds", len(rounds)).
		Int("clicks", len(clicks)).
		Int("cursor", sess.Cursor()).
		Msg("Simulation finished")

	report := export.NewReport(sess, rounds, clicks)
	if err := export.WriteReport(os.Stdout, opts.Output, opts.Format, report); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write report")
	}
	if opts.Output != "" {
		log.Info().Str("path", opts.Output).Str("format", opts.Format).Msg("Report written")
	}

	if opts.Snapshot != "" {
		err := export.WriteSnapshot(opts.Snapshot, report.Slots, render.Options{
			Width:  cfg.Server.SnapshotWidth,
			Height: cfg.Server.SnapshotHeight,
		}, cfg.Server.SnapshotQuality)
		if err != nil {
			log.Fatal().Err(err).Str("path", opts.Snapshot).Msg("Failed to write snapshot")
		}
		log.Info().Str("path", opts.Snapshot).Msg("Snapshot written")
	}
}

// parsePoints reads "lat,lng" pairs.
func parsePoints(raw []string) ([]geo.LatLng, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	pts := make([]geo.LatLng, 0, len(raw))
	for _, r := range raw {
		lat, lng, found := strings.Cut(r, ",")
		if !found {
			return nil, geo.ErrInvalidCoordinates
		}

		p, err := geo.ParseLatLng(lat, lng)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}

	return pts, nil
}
