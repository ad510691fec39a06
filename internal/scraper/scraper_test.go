package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Deadly1ne/ChapBuddy/internal/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScraper() *Scraper {
	return New(http.DefaultClient, ui.NewLogger(false))
}

func TestListChapters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a class="comics-chapters__item" href="/comic/chapter/0_4.html"><span>第四章</span></a>
			<a class="comics-chapters__item" href="/comic/chapter/0_5.html"><span>Chapter 5</span></a>
			<a class="comics-chapters__item" href="/about"><span>About the author</span></a>
		</body></html>`)
	}))
	defer srv.Close()

	got, err := testScraper().ListChapters(context.Background(), srv.URL+"/series")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 4, got[0].Number)
	assert.Equal(t, "第四章", got[0].Title)
	assert.Equal(t, srv.URL+"/comic/chapter/0_4.html", got[0].URL)
	assert.Equal(t, 5, got[1].Number)
}

func TestListChaptersEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
	}))
	defer srv.Close()

	got, err := testScraper().ListChapters(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func partPage(imgs []string, next string) string {
	page := "<html><body>"
	for _, img := range imgs {
		page += fmt.Sprintf(`<img src=%q>`, img)
	}
	page += `<img src="/assets/logo.svg">` // not a page image
	if next != "" {
		page += fmt.Sprintf(`<div class="next_chapter"><a href=%q>next</a></div>`, next)
	}
	return page + "</body></html>"
}

func TestFetchPartsWalksMultiPartChapter(t *testing.T) {
	part1 := []string{"/img/p1.jpg", "/img/p2.jpg", "/img/p3.jpg", "/img/p4.jpg", "/img/p5.jpg", "/img/p6.jpg"}
	// part 2 repeats part 1's last four images before its own content
	part2 := []string{"/img/p3.jpg", "/img/p4.jpg", "/img/p5.jpg", "/img/p6.jpg", "/img/p7.jpg", "/img/p8.jpg"}

	mux := http.NewServeMux()
	mux.HandleFunc("/comic/chapter/0_226.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, partPage(part1, "/comic/chapter/0_226_2.html"))
	})
	mux.HandleFunc("/comic/chapter/0_226_2.html", func(w http.ResponseWriter, r *http.Request) {
		// circular: the last part links back to part 1
		fmt.Fprint(w, partPage(part2, "/comic/chapter/0_226.html"))
	})
	mux.HandleFunc("/go/226", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/comic/chapter/0_226.html", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	parts, err := testScraper().FetchParts(context.Background(), srv.URL+"/go/226", srv.URL+"/series")
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.Len(t, parts[0].ImageURLs, 6)
	assert.Equal(t, srv.URL+"/img/p1.jpg", parts[0].ImageURLs[0])

	// overlap dropped: only p7 and p8 remain
	require.Len(t, parts[1].ImageURLs, 2)
	assert.Equal(t, srv.URL+"/img/p7.jpg", parts[1].ImageURLs[0])
	assert.Equal(t, srv.URL+"/img/p8.jpg", parts[1].ImageURLs[1])
}

func TestFetchPartsSinglePart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/comic/chapter/0_7.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, partPage([]string{"/a.jpg", "/b.png"}, ""))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	parts, err := testScraper().FetchParts(context.Background(), srv.URL+"/comic/chapter/0_7.html", "")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Len(t, parts[0].ImageURLs, 2)
}

func TestFetchPartsUnreachableChapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testScraper().FetchParts(context.Background(), srv.URL+"/comic/chapter/0_1.html", "")
	assert.Error(t, err)
}

func TestPartNumber(t *testing.T) {
	cases := []struct {
		url  string
		want int
	}{
		{"https://x.com/comic/chapter/0_226.html", 1},
		{"https://x.com/comic/chapter/0_226_2.html", 2},
		{"https://x.com/comic/chapter/0_226_10.html", 10},
		{"https://x.com/comic/chapter/latest", 1},
		{"https://x.com/series/list", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, partNumber(tc.url), tc.url)
	}
}

func TestNextPartURL(t *testing.T) {
	assert.Equal(t, "https://x.com/c/0_226_2.html", nextPartURL("https://x.com/c/0_226.html", 1, 2))
	assert.Equal(t, "https://x.com/c/0_226_3.html", nextPartURL("https://x.com/c/0_226_2.html", 2, 3))
	assert.Equal(t, "", nextPartURL("https://x.com/c/latest", 1, 2))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://x.com/a.html", normalizeURL("https://x.com/a.html?t=123#bottom"))
}
