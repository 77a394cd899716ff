// Package feed turns a podcast RSS feed into episode records. The feed is the
// authority for episode identity and publication time; page scraping and
// transcript download happen downstream.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podcast-search/pkg/domain"
	"podcast-search/pkg/httpclient"
)

var (
	ErrEmptyFeedURL = errors.New("feed URL is empty")
	ErrEmptyFeed    = errors.New("feed contains no items")
)

// Fetcher downloads and parses podcast feeds.
type Fetcher struct {
	client *httpclient.HTTPClient
	parser *gofeed.Parser
}

// NewFetcher creates a feed fetcher using the given HTTP client.
func NewFetcher(client *httpclient.HTTPClient) *Fetcher {
	return &Fetcher{
		client: client,
		parser: gofeed.NewParser(),
	}
}

// FetchEpisodes downloads the feed and maps every item to an episode record.
// Items without a usable identity (no GUID and no link) are skipped.
func (f *Fetcher) FetchEpisodes(ctx context.Context, feedURL string) ([]domain.Episode, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, ErrEmptyFeedURL
	}

	body, _, err := f.client.GetBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, ErrEmptyFeed
	}

	episodes := make([]domain.Episode, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		ep, ok := episodeFromItem(item)
		if !ok {
			continue
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func episodeFromItem(item *gofeed.Item) (domain.Episode, bool) {
	id := EpisodeIDFor(item.GUID, item.Link)
	if id == "" {
		return domain.Episode{}, false
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	}

	return domain.Episode{
		EpisodeID:   id,
		Title:       strings.TrimSpace(item.Title),
		PageURL:     strings.TrimSpace(item.Link),
		PublishedAt: published,
	}, true
}

// EpisodeIDFor derives the stable episode identifier: the feed GUID when
// present, otherwise a slug from the episode page URL. Entry IDs embed this
// value, so it must never change for an already-ingested episode.
func EpisodeIDFor(guid, link string) string {
	if guid = strings.TrimSpace(guid); guid != "" {
		return sanitizeID(guid)
	}
	return slugFromURL(link)
}

func slugFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return sanitizeID(raw)
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return sanitizeID(u.Host)
	}
	parts := strings.Split(p, "/")
	return sanitizeID(parts[len(parts)-1])
}

// sanitizeID keeps the ID safe for use inside entry IDs, which join episode
// ID and offset with an underscore.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
