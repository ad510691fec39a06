package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// MaxParts caps the part walk regardless of what the navigation links
// claim, guarding against circular next-part chains.
const MaxParts = 20

// partOverlap is how many images the sites repeat at the start of every
// part after the first (the previous part's tail).
const partOverlap = 4

var reImageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)$`)

// Part is one sub-page of a chapter with its page image URLs in order.
type Part struct {
	URL       string
	ImageURLs []string
}

// FetchParts walks a chapter's sub-pages starting from chapterURL and
// returns every part in reading order. The walk follows next-part links,
// refuses to revisit a path/part combination, falls back to generating
// sequential part URLs when navigation turns circular, and stops at the
// probed part count (plus one for safety) or MaxParts, whichever is lower.
func (s *Scraper) FetchParts(ctx context.Context, chapterURL, referer string) ([]Part, error) {
	realURL := s.resolveChapterURL(ctx, chapterURL, referer)

	expected := s.probeTotalParts(ctx, realURL)
	s.log.Debugf("expecting %d part(s) for %s\n", expected, realURL)

	maxAllowed := expected + 1
	if maxAllowed > MaxParts {
		maxAllowed = MaxParts
	}

	var parts []Part
	visited := map[string]bool{}
	seenContent := map[string]bool{}

	current := realURL
	for current != "" && len(parts) < maxAllowed {
		key := pathPartKey(current)
		if visited[key] {
			s.log.Warnf("part already walked: %s\n", key)
			break
		}
		visited[key] = true

		doc, err := s.fetchDOM(ctx, current)
		if err != nil {
			if len(parts) == 0 {
				return nil, fmt.Errorf("fetch part page: %w", err)
			}
			s.log.Errorf("failed to fetch part %d (%s): %v\n", len(parts)+1, current, err)
			break
		}

		images := extractImageURLs(doc, current)

		// pages with identical leading content are the same part reached
		// through a different URL
		sig := contentSignature(images)
		if sig != "" && seenContent[sig] && len(parts) >= 2 {
			s.log.Warnf("duplicate part content at %s\n", current)
			break
		}
		seenContent[sig] = true

		if len(parts) > 0 && len(images) > partOverlap {
			images = images[partOverlap:]
		}

		parts = append(parts, Part{URL: current, ImageURLs: images})
		s.log.Infof("part %d: %d image(s)\n", len(parts), len(images))

		current = s.nextPart(doc, current, visited, len(parts), maxAllowed)
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("no readable parts at %s", realURL)
	}

	return parts, nil
}

// nextPart decides where the walk goes after the current page: the site's
// next-part link when it is fresh, a generated sequential URL when the link
// loops back, or "" when the chapter is complete.
func (s *Scraper) nextPart(doc *goquery.Document, current string, visited map[string]bool, walked, maxAllowed int) string {
	if walked >= maxAllowed {
		s.log.Debugf("part limit reached (%d)\n", walked)
		return ""
	}

	next := nextLink(doc, current)
	if next == "" {
		return ""
	}

	if !visited[pathPartKey(next)] {
		return next
	}

	// circular navigation: the last part often links back to part 1.
	// Probe the sequential URL pattern instead.
	cur := partNumber(current)
	if cur == 0 {
		return ""
	}
	generated := nextPartURL(current, cur, cur+1)
	if generated == "" || visited[pathPartKey(generated)] {
		return ""
	}

	s.log.Debugf("circular next link, generated %s\n", generated)
	return generated
}

func nextLink(doc *goquery.Document, current string) string {
	sel := doc.Find(`div.next_chapter a[href*="comic/chapter"]`).First()
	if sel.Length() == 0 {
		sel = doc.Find("div.next_chapter a").First()
	}

	href, ok := sel.Attr("href")
	if !ok || href == "" {
		return ""
	}

	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	return normalizeURL(absoluteURL(base, href))
}

// probeTotalParts checks sequential part URLs with HEAD requests to learn
// how many sub-pages the chapter has. Probe failures just mean one part.
func (s *Scraper) probeTotalParts(ctx context.Context, chapterURL string) int {
	if !strings.Contains(chapterURL, "_") || !strings.Contains(chapterURL, ".html") {
		return 1
	}

	cur := partNumber(chapterURL)
	if cur == 0 {
		return 1
	}

	total := 1
	for part := 2; part <= 10; part++ {
		probe := nextPartURL(chapterURL, cur, part)
		if probe == "" {
			break
		}

		req, err := http.NewRequestWithContext(ctx, "HEAD", probe, nil)
		if err != nil {
			break
		}

		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		req = req.WithContext(probeCtx)
		resp, err := s.client.Do(req)
		cancel()
		if err != nil {
			break
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			break
		}
		total = part
	}

	return total
}

// extractImageURLs pulls page image URLs out of a part page in document
// order, deduplicated, with scheme-relative and page-relative URLs resolved.
func extractImageURLs(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)

	seen := map[string]bool{}
	var out []string

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			src, _ = sel.Attr("data-src")
		}
		if src == "" || !reImageExt.MatchString(src) {
			return
		}

		switch {
		case strings.HasPrefix(src, "//"):
			src = "https:" + src
		case !strings.HasPrefix(src, "http") && base != nil:
			src = absoluteURL(base, src)
		}

		if seen[src] {
			return
		}
		seen[src] = true
		out = append(out, src)
	})

	return out
}

func pathPartKey(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	return fmt.Sprintf("%s#%d", path, partNumber(raw))
}

func contentSignature(images []string) string {
	if len(images) == 0 {
		return ""
	}
	n := len(images)
	if n > 10 {
		n = 10
	}
	return strings.Join(images[:n], "|")
}
