package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	rePartSuffix  = regexp.MustCompile(`_(\d+)_(\d+)\.html$`)
	reChapterOnly = regexp.MustCompile(`_(\d+)\.html$`)
	reJSRedirect  = regexp.MustCompile(`location\.href\s*=\s*['"]([^'"]+)`)
)

// normalizeURL strips the query and fragment, keeping the original host.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// partNumber extracts the part ordinal from a chapter sub-page URL.
// The sites use chapter_part.html suffixes: 0_226.html is part 1,
// 0_226_2.html part 2, and so on. Returns 0 when the URL doesn't look
// like a chapter page at all.
func partNumber(raw string) int {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}

	if m := rePartSuffix.FindStringSubmatch(path); m != nil {
		n, _ := strconv.Atoi(m[2])
		return n
	}
	if reChapterOnly.MatchString(path) {
		return 1
	}
	if strings.Contains(strings.ToLower(raw), "chapter") {
		return 1
	}
	return 0
}

// nextPartURL builds the URL of part next for a chapter whose current part
// URL is known, or "" when the URL shape doesn't allow it.
func nextPartURL(current string, currentPart, next int) string {
	if !strings.Contains(current, "_") || !strings.Contains(current, ".html") {
		return ""
	}

	base := strings.TrimSuffix(current, ".html")

	suffix := "_" + strconv.Itoa(currentPart)
	switch {
	case strings.HasSuffix(base, suffix) && currentPart > 1:
		base = strings.TrimSuffix(base, suffix)
	case currentPart == 1:
		// first part carries no suffix
	default:
		return ""
	}

	return base + "_" + strconv.Itoa(next) + ".html"
}

// resolveChapterURL follows the one redirect hop the sites put in front of
// chapter pages, either an HTTP redirect or a location.href script.
func (s *Scraper) resolveChapterURL(ctx context.Context, chapterURL, referer string) string {
	req, err := http.NewRequestWithContext(ctx, "GET", chapterURL, nil)
	if err != nil {
		return chapterURL
	}
	req.Header.Set("Referer", referer)

	// shadow client that surfaces the redirect instead of following it
	noFollow := *s.client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noFollow.Do(req)
	if err != nil {
		s.log.Debugf("redirect resolution failed for %s: %v\n", chapterURL, err)
		return chapterURL
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc := resp.Header.Get("Location"); loc != "" {
			if u, err := url.Parse(chapterURL); err == nil {
				return absoluteURL(u, loc)
			}
			return loc
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256<<10))

	if m := reJSRedirect.FindSubmatch(body); m != nil {
		if u, err := url.Parse(chapterURL); err == nil {
			return absoluteURL(u, string(m[1]))
		}
	}

	return chapterURL
}
