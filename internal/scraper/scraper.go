// Package scraper extracts chapter listings and page image URLs from manga
// reading sites. Chapters may spread across several sub-pages ("parts");
// the walker in parts.go reassembles them in reading order.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Deadly1ne/ChapBuddy/internal/chapters"
	"github.com/Deadly1ne/ChapBuddy/internal/util"
)

type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
	Warnf(string, ...any)
	Errorf(string, ...any)
}

type Scraper struct {
	client *http.Client
	log    Logger
}

func New(client *http.Client, log Logger) *Scraper {
	return &Scraper{client: client, log: log}
}

// ListChapters scans a series listing page and returns every entry that
// parses as a numbered chapter. Order is whatever the site shows; callers
// sort before use.
func (s *Scraper) ListChapters(ctx context.Context, listingURL string) ([]chapters.Chapter, error) {
	doc, err := s.fetchDOM(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("bad listing url %q: %w", listingURL, err)
	}

	var out []chapters.Chapter
	doc.Find(".comics-chapters__item").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}

		title := sel.Find("span").First().Text()
		if title == "" {
			title = sel.Text()
		}

		number := chapters.ExtractNumber(title)
		if number == 0 {
			s.log.Debugf("skipping unnumbered listing entry %q\n", title)
			return
		}

		out = append(out, chapters.Chapter{
			Number: number,
			Title:  title,
			URL:    absoluteURL(base, href),
		})
	})

	if len(out) == 0 {
		s.log.Infof("no chapters found at %s\n", listingURL)
	}

	return out, nil
}

func (s *Scraper) fetchDOM(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := util.DoWithRetry(s.client, req, 3, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func absoluteURL(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(u).String()
}
