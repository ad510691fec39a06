// Package notify posts run events to Discord webhooks. Notification
// failures never fail the pipeline; callers log them and move on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

// Service is the notification surface the pipeline talks to.
type Service interface {
	NotifyChapterUploaded(ctx context.Context, series string, chapter int, readLink, folderLink string) error
	NotifyProcessingFailed(ctx context.Context, series string, chapter int, reason error) error
	NotifyUploadFailed(ctx context.Context, series string, chapter int, reason error) error
	NotifyRunSummary(ctx context.Context, chaptersDone, seriesFailed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a Discord-backed notifier for the webhook, or a noop
// one when no webhook is configured.
func NewService(webhookURL string, client *http.Client) Service {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return noopService{}
	}

	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}

	return &discordService{
		webhookURL: webhookURL,
		client:     client,
	}
}

type discordService struct {
	webhookURL string
	client     *http.Client
}

func (d *discordService) NotifyChapterUploaded(ctx context.Context, series string, chapter int, readLink, folderLink string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s — Chapter %d** is up!\n", strings.TrimSpace(series), chapter)
	if readLink != "" {
		fmt.Fprintf(&b, "Read Online: %s\n", readLink)
	}
	if folderLink != "" {
		fmt.Fprintf(&b, "Download Folder: %s", folderLink)
	}
	return d.send(ctx, b.String())
}

func (d *discordService) NotifyProcessingFailed(ctx context.Context, series string, chapter int, reason error) error {
	return d.send(ctx, fmt.Sprintf("⚠️ %s — Chapter %d failed during processing: %s",
		strings.TrimSpace(series), chapter, errText(reason)))
}

func (d *discordService) NotifyUploadFailed(ctx context.Context, series string, chapter int, reason error) error {
	return d.send(ctx, fmt.Sprintf("⚠️ %s — Chapter %d processed but the upload failed: %s",
		strings.TrimSpace(series), chapter, errText(reason)))
}

func (d *discordService) NotifyRunSummary(ctx context.Context, chaptersDone, seriesFailed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	msg := fmt.Sprintf("Run finished: %d chapter(s) uploaded in %s", chaptersDone, duration)
	if seriesFailed > 0 {
		msg = fmt.Sprintf("Run finished: %d chapter(s) uploaded, %d series with failures, in %s",
			chaptersDone, seriesFailed, duration)
	}
	return d.send(ctx, msg)
}

func (d *discordService) TestNotification(ctx context.Context) error {
	return d.send(ctx, "Webhook test: notifications are wired up.")
}

type webhookBody struct {
	Content string `json:"content"`
}

func (d *discordService) send(ctx context.Context, content string) error {
	// Discord rejects messages over 2000 characters
	if len(content) > 2000 {
		content = content[:1997] + "..."
	}

	body, err := json.Marshal(webhookBody{Content: content})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	return nil
}

func errText(err error) string {
	if err == nil {
		return "unknown"
	}
	return strings.TrimSpace(err.Error())
}

type noopService struct{}

func (noopService) NotifyChapterUploaded(context.Context, string, int, string, string) error {
	return nil
}

func (noopService) NotifyProcessingFailed(context.Context, string, int, error) error { return nil }

func (noopService) NotifyUploadFailed(context.Context, string, int, error) error { return nil }

func (noopService) NotifyRunSummary(context.Context, int, int, time.Duration) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
