// Package runner drives one unattended pipeline pass: scan every
// configured series, process the chapters that appeared since the last
// run, upload them and record what succeeded.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Deadly1ne/ChapBuddy/internal/chapters"
	"github.com/Deadly1ne/ChapBuddy/internal/config"
	"github.com/Deadly1ne/ChapBuddy/internal/drive"
	"github.com/Deadly1ne/ChapBuddy/internal/imaging"
	"github.com/Deadly1ne/ChapBuddy/internal/notify"
	"github.com/Deadly1ne/ChapBuddy/internal/scraper"
	"github.com/Deadly1ne/ChapBuddy/internal/state"
	"github.com/Deadly1ne/ChapBuddy/internal/ui"
	"github.com/Deadly1ne/ChapBuddy/internal/util"
)

// Scanner finds chapters and their page image URLs on the source site.
type Scanner interface {
	ListChapters(ctx context.Context, listingURL string) ([]chapters.Chapter, error)
	FetchParts(ctx context.Context, chapterURL, referer string) ([]scraper.Part, error)
}

// PageFetcher downloads page images in reading order.
type PageFetcher interface {
	Pages(ctx context.Context, urls []string, referer string, maxParallel int, ph *ui.ProgressHandle) ([][]byte, int64, error)
}

// Uploader stores a finished chapter remotely.
type Uploader interface {
	UploadChapter(ctx context.Context, seriesFolderID, seriesName string, chapter int, parts [][]byte) (*drive.Result, error)
}

type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
	Warnf(string, ...any)
	Errorf(string, ...any)
}

type Runner struct {
	cfg      *config.Config
	store    *state.Store
	scanner  Scanner
	fetcher  PageFetcher
	uploader Uploader
	log      Logger

	// notifierFor builds the notifier for one series, honoring per-series
	// webhook overrides. Swappable in tests.
	notifierFor func(webhookURL string) notify.Service

	progress     *ui.MPBProgressManager
	stats        *ui.Stats
	chapterDelay time.Duration
}

func New(cfg *config.Config, store *state.Store, scanner Scanner, fetcher PageFetcher, uploader Uploader, log Logger) *Runner {
	return &Runner{
		cfg:         cfg,
		store:       store,
		scanner:     scanner,
		fetcher:     fetcher,
		uploader:    uploader,
		log:         log,
		notifierFor:  func(url string) notify.Service { return notify.NewService(url, nil) },
		stats:        &ui.Stats{},
		chapterDelay: 2 * time.Second,
	}
}

// WithProgress attaches a progress bar manager for interactive use.
func (r *Runner) WithProgress(pm *ui.MPBProgressManager) *Runner {
	r.progress = pm
	return r
}

// WithNotifierFactory overrides how per-series notifiers are built.
func (r *Runner) WithNotifierFactory(f func(webhookURL string) notify.Service) *Runner {
	r.notifierFor = f
	return r
}

// Stats exposes the counters accumulated by Run.
func (r *Runner) Stats() *ui.Stats {
	return r.stats
}

// Run processes every configured series in order. A failing series is
// logged and skipped; the others still run. The returned error is non-nil
// only when at least one series failed.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()

	for _, s := range r.cfg.Series {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.processSeries(ctx, s); err != nil {
			r.stats.FailedSeries.Add(1)
			r.log.Errorf("series %s: %v\n", s.ID, err)
		}
	}

	if r.progress != nil {
		r.progress.Close()
	}

	done := int(r.stats.TotalChapters.Load())
	failed := int(r.stats.FailedSeries.Load())

	r.log.Infof("run complete: %d chapter(s), %d page(s), %s uploaded, %d failed series, %s\n",
		done,
		r.stats.TotalPages.Load(),
		util.Human(r.stats.TotalBytes.Load()),
		failed,
		time.Since(start).Round(time.Second))

	if done > 0 || failed > 0 {
		notifier := r.notifierFor(r.cfg.DiscordWebhook)
		if err := notifier.NotifyRunSummary(ctx, done, failed, time.Since(start)); err != nil {
			r.log.Warnf("run summary notification failed: %v\n", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d series failed", failed)
	}
	return nil
}

// processSeries scans one series and works through its pending chapters
// in ascending order. The first failing chapter stops the series for this
// run; untouched chapters stay pending for the next one.
func (r *Runner) processSeries(ctx context.Context, s config.Series) error {
	available, err := r.scanner.ListChapters(ctx, s.URL)
	if err != nil {
		return fmt.Errorf("scan listing: %w", err)
	}

	last := r.store.Get(s.ID).LastProcessedChapter
	pending := state.Pending(available, last, r.cfg.MaxChaptersPerRun)
	if len(pending) == 0 {
		r.log.Debugf("%s: nothing new past chapter %d\n", s.ID, last)
		return nil
	}

	r.log.Infof("%s: %d pending chapter(s) after %d\n", s.ID, len(pending), last)
	notifier := r.notifierFor(r.cfg.Webhook(s))

	for i, ch := range pending {
		if i > 0 {
			// politeness pause between chapters of the same series
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.chapterDelay):
			}
		}

		if err := r.processChapter(ctx, s, ch, notifier); err != nil {
			if serr := r.store.RecordFailure(s.ID); serr != nil {
				r.log.Errorf("%s: record failure: %v\n", s.ID, serr)
			}
			r.notifyFailure(ctx, s, ch, notifier, err)
			return fmt.Errorf("chapter %d: %w", ch.Number, err)
		}
	}

	return nil
}

func (r *Runner) processChapter(ctx context.Context, s config.Series, ch chapters.Chapter, notifier notify.Service) error {
	r.log.Infof("%s: processing chapter %d (%s)\n", s.ID, ch.Number, ch.Title)

	parts, err := r.scanner.FetchParts(ctx, ch.URL, s.URL)
	if err != nil {
		return fmt.Errorf("fetch parts: %w", err)
	}

	var urls []string
	for _, p := range parts {
		urls = append(urls, p.ImageURLs...)
	}
	if len(urls) == 0 {
		return imaging.ErrEmptyInput
	}

	var ph *ui.ProgressHandle
	if r.progress != nil {
		ph = r.progress.Register(fmt.Sprintf("%s ch.%d", s.ID, ch.Number))
	}

	pages, bytes, err := r.fetcher.Pages(ctx, urls, parts[0].URL, r.cfg.ImageWorkers, ph)
	if err != nil {
		return fmt.Errorf("download pages: %w", err)
	}

	imgs, err := imaging.Load(pages)
	if err != nil {
		return err
	}

	if r.cfg.TrimWatermarks {
		imgs = imaging.TrimAll(imgs)
	}
	imgs = imaging.NormalizeWidth(imgs)

	outputs, err := imaging.Stitch(imgs, r.cfg.StitchMaxHeight)
	if err != nil {
		return err
	}

	encoded := make([][]byte, 0, len(outputs))
	for _, out := range outputs {
		data, err := imaging.EncodeJPEG(out, r.cfg.JPEGQuality)
		if err != nil {
			return err
		}
		encoded = append(encoded, data)
	}

	res, err := r.uploader.UploadChapter(ctx, s.DriveFolderID, s.Name, ch.Number, encoded)
	if err != nil {
		return err
	}

	if err := r.store.RecordSuccess(s.ID, ch.Number, ch.Title); err != nil {
		return fmt.Errorf("record success: %w", err)
	}

	r.stats.TotalChapters.Add(1)
	r.stats.TotalPages.Add(int64(len(pages)))
	r.stats.TotalOutputs.Add(int64(len(encoded)))
	r.stats.TotalBytes.Add(bytes)

	// the chapter is done and recorded; a broken webhook must not fail it
	if err := notifier.NotifyChapterUploaded(ctx, s.Name, ch.Number, res.ReadLink, res.FolderLink); err != nil {
		r.log.Warnf("%s: chapter %d notification failed: %v\n", s.ID, ch.Number, err)
	}

	return nil
}

// notifyFailure tells the webhook which stage broke. Errors here are only
// logged; the chapter failure itself is already being reported upstream.
func (r *Runner) notifyFailure(ctx context.Context, s config.Series, ch chapters.Chapter, notifier notify.Service, cause error) {
	var err error
	if errors.Is(cause, drive.ErrUpload) {
		err = notifier.NotifyUploadFailed(ctx, s.Name, ch.Number, cause)
	} else {
		err = notifier.NotifyProcessingFailed(ctx, s.Name, ch.Number, cause)
	}

	if err != nil {
		r.log.Warnf("%s: chapter %d failure notification failed: %v\n", s.ID, ch.Number, err)
	}
}
