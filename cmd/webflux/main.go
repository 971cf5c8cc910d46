package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/webflux/internal/app"
	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

var (
	configPath   = flag.String("config", "", "Configuration file path (TOML)")
	configPathC  = flag.String("c", "", "Configuration file path (shorthand)")
	seedFile     = flag.String("seeds", "", "Seed file path (YAML)")
	schedule     = flag.String("schedule", "", "Cron expression; rerun the crawl on this schedule")
	outputPath   = flag.String("output", "", "Write chunks as JSON lines to this file (default stdout)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("webflux version %s\n", common.GetVersion())
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		path = *configPathC
	}
	if path == "" {
		// Auto-discover a config file next to the working directory
		if _, err := os.Stat("webflux.toml"); err == nil {
			path = "webflux.toml"
		}
	}

	config, err := common.LoadConfig(path)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	seeds := flag.Args()
	if *seedFile != "" {
		list, err := common.LoadSeeds(*seedFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load seed file")
			os.Exit(1)
		}
		list.Apply(&config.Crawler)
		seeds = append(seeds, list.Seeds...)
	}
	if len(seeds) == 0 {
		logger.Fatal().Msg("No seed URLs given; pass them as arguments or via -seeds")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start application")
		os.Exit(1)
	}
	defer application.Close()

	if *schedule != "" {
		runScheduled(ctx, application, seeds, *schedule, logger)
		return
	}

	if err := runCrawl(ctx, application, seeds); err != nil {
		logger.Error().Err(err).Msg("Crawl failed")
		os.Exit(1)
	}
}

// runScheduled reruns the crawl on a cron schedule until interrupted.
// Overlapping runs are skipped rather than queued.
func runScheduled(ctx context.Context, application *app.App, seeds []string, spec string, logger arbor.ILogger) {
	running := make(chan struct{}, 1)

	scheduler := cron.New()
	_, err := scheduler.AddFunc(spec, func() {
		select {
		case running <- struct{}{}:
		default:
			logger.Warn().Str("schedule", spec).Msg("Previous crawl still running, skipping this tick")
			return
		}
		defer func() { <-running }()

		if err := runCrawl(ctx, application, seeds); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Scheduled crawl failed")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Str("schedule", spec).Msg("Invalid cron expression")
		os.Exit(1)
	}

	logger.Info().Str("schedule", spec).Msg("Running on schedule; ctrl-c to stop")
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
}

// runCrawl runs one crawl to completion, streaming chunks to the output
// writer and logging progress along the way
func runCrawl(ctx context.Context, application *app.App, seeds []string) error {
	logger := application.Logger

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			return fmt.Errorf("create output %s: %w", *outputPath, err)
		}
		defer f.Close()
		out = f
	}
	writer := bufio.NewWriter(out)
	defer writer.Flush()
	encoder := json.NewEncoder(writer)

	job, err := application.Crawler.Crawl(ctx, seeds)
	if err != nil {
		return err
	}
	logger.Info().Str("job_id", job.ID).Int("seeds", len(seeds)).Msg("Crawl started")

	go logProgress(job.Progress, logger)

	written := 0
	for chunk := range job.Chunks {
		if err := encoder.Encode(chunk); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		written++
	}

	snapshot, _ := job.Wait(context.Background())
	printSummary(snapshot, written, logger)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// logProgress surfaces the periodic snapshots at debug level
func logProgress(updates <-chan models.ProgressSnapshot, logger arbor.ILogger) {
	for snapshot := range updates {
		logger.Debug().
			Int("processed", snapshot.ProcessedURLs).
			Int("total", snapshot.TotalURLs).
			Int("failed", snapshot.FailedURLs).
			Int("chunks", snapshot.TotalChunks).
			Str("current", snapshot.CurrentURL).
			Msg("Progress")
	}
}

func printSummary(snapshot models.ProgressSnapshot, written int, logger arbor.ILogger) {
	logger.Info().
		Str("job_id", snapshot.JobID).
		Int("processed", snapshot.ProcessedURLs).
		Int("succeeded", snapshot.SuccessURLs).
		Int("failed", snapshot.FailedURLs).
		Int("chunks", written).
		Dur("elapsed", snapshot.Elapsed).
		Msg("Crawl complete")

	for errType, count := range snapshot.ErrorTypeCounts {
		logger.Info().Str("error_type", errType).Int("count", count).Msg("Failure breakdown")
	}
}
