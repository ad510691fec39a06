package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Deadly1ne/ChapBuddy/internal/config"
	"github.com/Deadly1ne/ChapBuddy/internal/drive"
	"github.com/Deadly1ne/ChapBuddy/internal/fetch"
	"github.com/Deadly1ne/ChapBuddy/internal/runner"
	"github.com/Deadly1ne/ChapBuddy/internal/scraper"
	"github.com/Deadly1ne/ChapBuddy/internal/state"
	"github.com/Deadly1ne/ChapBuddy/internal/ui"
	"github.com/Deadly1ne/ChapBuddy/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagSeries       string
	flagMaxChapters  int
	flagImageWorkers int
	flagStateFile    string
	flagUserAgent    string
	flagDryRun       bool
	flagNoProgress   bool
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pipeline pass over all configured series. Meant to be invoked from cron or a systemd timer",
		RunE:  runPipeline,
	}

	runCmd.Flags().StringVar(&flagSeries, "series", "", "process only this series id")
	runCmd.Flags().IntVar(&flagMaxChapters, "max-chapters", 0, "override chapters processed per series per run")
	runCmd.Flags().IntVar(&flagImageWorkers, "image-workers", 0, "parallel page downloads per chapter")
	runCmd.Flags().StringVar(&flagStateFile, "state-file", "", "override state file path")
	runCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show pending chapters without processing them")
	runCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "disable progress bars (for log files)")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig:      flagIgnoreConfig,
		Debug:             flagDebug,
		MaxChaptersPerRun: flagMaxChapters,
		ImageWorkers:      flagImageWorkers,
		StateFile:         flagStateFile,
		UserAgent:         flagUserAgent,
		SeriesID:          flagSeries,
	})
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		logSvc.Debugf("config file: %s\n", usedPath)
	}

	store, err := state.Load(cfg.StateFile)
	if err != nil {
		return err
	}

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:     60 * time.Second,
		UserAgent:   util.PickUserAgent(cfg.UserAgent),
		DebugLogger: logSvc,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scr := scraper.New(client, logSvc)

	if flagDryRun {
		return dryRun(ctx, cfg, store, scr, logSvc)
	}

	uploader, err := drive.New(ctx, cfg.CredentialsFile, cfg.TokenFile, cfg.RootDriveFolderID, logSvc)
	if err != nil {
		return err
	}

	r := runner.New(cfg, store, scr, fetch.New(client), uploader, logSvc)
	if !flagNoProgress {
		r = r.WithProgress(ui.NewProgressManager())
	}

	return r.Run(ctx)
}

// dryRun prints what a real pass would pick up, touching neither Drive
// nor the state file.
func dryRun(ctx context.Context, cfg *config.Config, store *state.Store, scr *scraper.Scraper, logSvc *ui.Logger) error {
	for _, s := range cfg.Series {
		available, err := scr.ListChapters(ctx, s.URL)
		if err != nil {
			logSvc.Errorf("%s: scan failed: %v\n", s.ID, err)
			continue
		}

		last := store.Get(s.ID).LastProcessedChapter
		pending := state.Pending(available, last, cfg.MaxChaptersPerRun)

		fmt.Printf("%s (last processed: %d)\n", s.Name, last)
		if len(pending) == 0 {
			fmt.Println("  nothing pending")
			continue
		}
		for _, ch := range pending {
			fmt.Printf("  chapter %d  %s\n", ch.Number, ch.URL)
		}
	}

	return nil
}
