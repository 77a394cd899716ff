package transcripts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podcast-search/pkg/domain"
	"podcast-search/pkg/httpclient"
)

const episodeHTML = `<!DOCTYPE html>
<html>
<head><title>Matchday Review</title></head>
<body>
<h1>Episode 42: Derby Day</h1>
<article>
<p>We break down the derby from first whistle to last, including the
controversial penalty call and the late winner at the death.</p>
<p><a href="/files/ep42.srt">Transcript</a></p>
<p><a href="/files/ep42.pdf">Show notes PDF</a></p>
</article>
</body>
</html>`

const episodeSRT = `1
00:00:00,000 --> 00:00:09,999
The home side starts brightly down the left wing.

2
00:00:10,000 --> 00:00:19,999
A corner leads to the opening goal.
`

func newService() *Service {
	return New(nil, httpclient.NewClient(httpclient.BrowserClient))
}

func TestFindTranscriptLink(t *testing.T) {
	href, err := findTranscriptLink(episodeHTML)
	if err != nil {
		t.Fatalf("findTranscriptLink: %v", err)
	}
	if href != "/files/ep42.srt" {
		t.Errorf("href = %q, want /files/ep42.srt", href)
	}
}

func TestFindTranscriptLink_PrefersTimedFormats(t *testing.T) {
	html := `<html><body>
<a href="/notes.pdf">Transcript</a>
<a href="/captions.vtt">Captions</a>
</body></html>`
	href, err := findTranscriptLink(html)
	if err != nil {
		t.Fatalf("findTranscriptLink: %v", err)
	}
	// The PDF has the "transcript" label but no timing data.
	if href != "/captions.vtt" {
		t.Errorf("href = %q, want /captions.vtt", href)
	}
}

func TestFindTranscriptLink_None(t *testing.T) {
	html := `<html><body><a href="/about">About</a></body></html>`
	if _, err := findTranscriptLink(html); !errors.Is(err, ErrNoTranscriptLink) {
		t.Errorf("got %v, want ErrNoTranscriptLink", err)
	}
}

func TestExtractPageContent(t *testing.T) {
	title, text := extractPageContent(episodeHTML, "https://example.com/episodes/derby-day")
	if title == "" {
		t.Error("no title extracted")
	}
	if !strings.Contains(text, "controversial penalty call") {
		t.Errorf("page text missing show notes: %q", text)
	}
}

func TestDownloadAndSegment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/ep42.srt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(episodeSRT))
	}))
	defer srv.Close()

	s := newService()
	ep := domain.Episode{EpisodeID: "ep42", TranscriptURL: srv.URL + "/files/ep42.srt"}

	entries, err := s.downloadAndSegment(context.Background(), &ep)
	if err != nil {
		t.Fatalf("downloadAndSegment: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != "ep42_0" || e.StartMs != 0 || e.EndMs != 19999 {
		t.Errorf("entry = %+v", e)
	}
	if !strings.Contains(e.Text, "opening goal") {
		t.Errorf("entry text = %q", e.Text)
	}
}

func TestDownloadAndSegment_BadTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a transcript at all"))
	}))
	defer srv.Close()

	s := newService()
	ep := domain.Episode{EpisodeID: "ep1", TranscriptURL: srv.URL + "/t.srt"}
	if _, err := s.downloadAndSegment(context.Background(), &ep); err == nil {
		t.Error("expected error for malformed transcript")
	}
}

func TestProcessEpisode_NoTranscriptLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Ep</h1><p>notes</p></body></html>`))
	}))
	defer srv.Close()

	s := newService()
	err := s.ProcessEpisode(context.Background(), domain.Episode{EpisodeID: "ep1", PageURL: srv.URL + "/e/1"})
	if !errors.Is(err, ErrNoTranscriptLink) {
		t.Errorf("got %v, want ErrNoTranscriptLink", err)
	}
}

func TestParseSitemapLocs(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/episodes/one</loc></url>
  <url><loc> https://example.com/episodes/two </loc></url>
  <url><loc></loc></url>
</urlset>`

	locs, err := parseSitemapLocs([]byte(xml))
	if err != nil {
		t.Fatalf("parseSitemapLocs: %v", err)
	}
	want := []string{"https://example.com/episodes/one", "https://example.com/episodes/two"}
	if len(locs) != len(want) {
		t.Fatalf("locs = %v", locs)
	}
	for i := range want {
		if locs[i] != want[i] {
			t.Errorf("locs[%d] = %q, want %q", i, locs[i], want[i])
		}
	}
}
