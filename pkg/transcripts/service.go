// Package transcripts ingests podcast episode transcripts. Given episodes
// discovered from a feed or sitemap, it fetches each episode page, locates the
// timestamped transcript file, segments it into search entries, and persists
// both the episode record and its entries.
package transcripts

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"podcast-search/pkg/db"
	"podcast-search/pkg/domain"
	"podcast-search/pkg/feed"
	"podcast-search/pkg/httpclient"
	"podcast-search/pkg/segment"
)

var (
	ErrEmptyFeedURL     = errors.New("feed URL is empty")
	ErrEmptySitemapURL  = errors.New("sitemap URL is empty")
	ErrEmptyEpisodePage = errors.New("episode page is empty")
	ErrNoTranscriptLink = errors.New("no transcript link found on episode page")
	ErrEmptyTranscript  = errors.New("transcript file is empty")
	ErrNoCaptionLines   = errors.New("transcript produced no caption lines")
)

// Service downloads and indexes episode transcripts.
type Service struct {
	db      *db.Client
	client  *httpclient.HTTPClient
	feeds   *feed.Fetcher
	workers int
}

// New creates a transcript ingestion service.
func New(dbClient *db.Client, client *httpclient.HTTPClient) *Service {
	return &Service{
		db:      dbClient,
		client:  client,
		feeds:   feed.NewFetcher(client),
		workers: 10,
	}
}

// SetWorkers sets the number of parallel workers used to process episodes.
// Values <= 0 are coerced to 1.
func (s *Service) SetWorkers(workers int) {
	if workers <= 0 {
		workers = 1
	}
	s.workers = workers
}

// IngestFromFeed discovers episodes from the podcast RSS feed and ingests the
// ones not seen before. max limits how many new episodes are processed;
// max <= 0 means no limit.
func (s *Service) IngestFromFeed(ctx context.Context, feedURL string, max int) error {
	if strings.TrimSpace(feedURL) == "" {
		return ErrEmptyFeedURL
	}

	episodes, err := s.feeds.FetchEpisodes(ctx, feedURL)
	if err != nil {
		return fmt.Errorf("discover episodes: %w", err)
	}

	episodes, err = s.filterKnown(ctx, episodes)
	if err != nil {
		return err
	}
	if max > 0 && len(episodes) > max {
		episodes = episodes[:max]
	}

	log.Printf("Ingesting %d new episodes from feed", len(episodes))
	return s.processInParallel(ctx, episodes)
}

// IngestFromSitemap discovers episode page URLs from a sitemap and ingests
// them. Sitemaps carry no publication dates, so entries from this path have a
// zero published time until a later feed pass fills it in.
func (s *Service) IngestFromSitemap(ctx context.Context, sitemapURL string, max int) error {
	if strings.TrimSpace(sitemapURL) == "" {
		return ErrEmptySitemapURL
	}

	body, _, err := s.client.GetBytes(ctx, sitemapURL)
	if err != nil {
		return fmt.Errorf("fetch sitemap: %w", err)
	}
	pageURLs, err := parseSitemapLocs(body)
	if err != nil {
		return fmt.Errorf("parse sitemap: %w", err)
	}

	episodes := make([]domain.Episode, 0, len(pageURLs))
	for _, u := range pageURLs {
		id := feed.EpisodeIDFor("", u)
		if id == "" {
			continue
		}
		episodes = append(episodes, domain.Episode{EpisodeID: id, PageURL: u})
	}

	episodes, err = s.filterKnown(ctx, episodes)
	if err != nil {
		return err
	}
	if max > 0 && len(episodes) > max {
		episodes = episodes[:max]
	}

	log.Printf("Ingesting %d new episodes from sitemap", len(episodes))
	return s.processInParallel(ctx, episodes)
}

// filterKnown drops episodes whose page URL is already in the database.
func (s *Service) filterKnown(ctx context.Context, episodes []domain.Episode) ([]domain.Episode, error) {
	if s.db == nil || len(episodes) == 0 {
		return episodes, nil
	}

	urls := make([]string, 0, len(episodes))
	for _, ep := range episodes {
		if ep.PageURL != "" {
			urls = append(urls, ep.PageURL)
		}
	}
	existing, err := s.db.GetExistingEpisodePageURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("check existing episodes: %w", err)
	}
	if len(existing) == 0 {
		return episodes, nil
	}

	out := make([]domain.Episode, 0, len(episodes))
	for _, ep := range episodes {
		if !existing[ep.PageURL] {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (s *Service) processInParallel(ctx context.Context, episodes []domain.Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	jobs := make(chan domain.Episode)

	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			for ep := range jobs {
				if err := s.ProcessEpisode(ctx, ep); err != nil {
					// One broken episode must not stop the run.
					log.Printf("skip episode %s: %v", ep.EpisodeID, err)
				}
			}
		}()
	}

	for _, ep := range episodes {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- ep:
		}
	}

	close(jobs)
	wg.Wait()
	return nil
}

// ProcessEpisode fetches one episode page, extracts its transcript, and
// persists the episode plus its regenerated search entries.
func (s *Service) ProcessEpisode(ctx context.Context, ep domain.Episode) error {
	if strings.TrimSpace(ep.PageURL) == "" {
		return ErrEmptyEpisodePage
	}

	pageBytes, _, err := s.client.GetBytes(ctx, ep.PageURL)
	if err != nil {
		return fmt.Errorf("fetch episode page: %w", err)
	}
	html := string(pageBytes)
	if strings.TrimSpace(html) == "" {
		return ErrEmptyEpisodePage
	}

	title, pageText := extractPageContent(html, ep.PageURL)
	if ep.Title == "" {
		ep.Title = title
	}
	ep.PageContent = pageText

	transcriptURL, err := findTranscriptLink(html)
	if err != nil {
		return err
	}
	transcriptURL, err = resolveAgainst(ep.PageURL, transcriptURL)
	if err != nil {
		return fmt.Errorf("resolve transcript URL: %w", err)
	}
	ep.TranscriptURL = transcriptURL

	entries, err := s.downloadAndSegment(ctx, &ep)
	if err != nil {
		return err
	}

	ep.CrawledAt = time.Now()

	if s.db == nil {
		return errors.New("db client is nil")
	}
	if err := s.db.SaveEpisode(ctx, &ep); err != nil {
		return fmt.Errorf("save episode: %w", err)
	}
	if err := s.db.ReplaceEpisodeEntries(ctx, ep.EpisodeID, entries); err != nil {
		return fmt.Errorf("save entries: %w", err)
	}

	log.Printf("Ingested episode %s: %d entries", ep.EpisodeID, len(entries))
	return nil
}

// downloadAndSegment fetches the transcript file and turns it into search
// entries. A transcript with malformed timing lines fails the whole episode;
// partial entry sets would silently hide parts of the audio from search.
func (s *Service) downloadAndSegment(ctx context.Context, ep *domain.Episode) ([]domain.SearchEntry, error) {
	body, _, err := s.client.GetBytes(ctx, ep.TranscriptURL)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyTranscript
	}

	lines, err := segment.ParseSRT(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrNoCaptionLines
	}

	entries, err := segment.Segment(lines, ep.EpisodeID, ep.PublishedUnixMs())
	if err != nil {
		return nil, fmt.Errorf("segment transcript: %w", err)
	}
	return entries, nil
}

// extractPageContent pulls the readable show notes out of the episode page.
// Readability does the heavy lifting; goquery supplies the title fallback.
func extractPageContent(html, pageURL string) (title, text string) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}

	if article, err := readability.FromReader(strings.NewReader(html), u); err == nil {
		title = strings.TrimSpace(article.Title)
		text = strings.Join(strings.Fields(article.TextContent), " ")
	}
	if title != "" && text != "" {
		return title, text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return title, text
	}
	if title == "" {
		if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
			title = h1
		} else {
			title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}
	if text == "" {
		text = strings.Join(strings.Fields(doc.Find("body").First().Text()), " ")
	}
	return title, text
}

// findTranscriptLink locates the timestamped transcript file on the episode
// page. Only .srt and .vtt carry the timing data segmentation needs; links
// merely labeled "transcript" are a weaker signal used as a tiebreaker.
func findTranscriptLink(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var timed, labeled []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		if hasTimedTranscriptExt(href) {
			if strings.Contains(strings.ToLower(sel.Text()), "transcript") {
				labeled = append(labeled, href)
			} else {
				timed = append(timed, href)
			}
		}
	})

	switch {
	case len(labeled) > 0:
		return labeled[0], nil
	case len(timed) > 0:
		return timed[0], nil
	default:
		return "", ErrNoTranscriptLink
	}
}

func hasTimedTranscriptExt(href string) bool {
	p := href
	if u, err := url.Parse(href); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".srt", ".vtt":
		return true
	default:
		return false
	}
}

func resolveAgainst(baseURL, ref string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Location string `xml:"loc"`
}

func parseSitemapLocs(xmlBytes []byte) ([]string, error) {
	var set urlSet
	if err := xml.NewDecoder(bytes.NewReader(xmlBytes)).Decode(&set); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Location); loc != "" {
			out = append(out, loc)
		}
	}
	return out, nil
}
