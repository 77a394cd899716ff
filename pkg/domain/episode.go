package domain

import "time"

// Episode represents one podcast episode whose transcript has been (or will be)
// ingested. It carries the metadata segmentation needs plus provenance for the
// transcript file itself.
type Episode struct {
	// EpisodeID is the stable identifier used in entry IDs, usually the feed GUID
	// or a slug derived from the episode page URL.
	EpisodeID string `bson:"episode_id" json:"episodeId"`

	// Title is the episode title, when available.
	Title string `bson:"title" json:"title"`

	// PageURL is the canonical URL of the episode page (not the transcript file).
	PageURL string `bson:"page_url" json:"pageUrl"`

	// PageContent is extracted show-notes text from the episode page.
	PageContent string `bson:"page_content,omitempty" json:"pageContent,omitempty"`

	// TranscriptURL is the URL of the timestamped transcript file (.srt/.vtt).
	TranscriptURL string `bson:"transcript_url,omitempty" json:"transcriptUrl,omitempty"`

	// PublishedAt is the episode publication time from the feed.
	PublishedAt time.Time `bson:"published_at" json:"publishedAt"`

	// CrawledAt is when we fetched and processed this episode.
	CrawledAt time.Time `bson:"crawled_at" json:"crawledAt"`
}

// PublishedUnixMs returns the publication time in the millisecond form carried
// on every search entry.
func (e *Episode) PublishedUnixMs() int64 {
	if e.PublishedAt.IsZero() {
		return 0
	}
	return e.PublishedAt.UnixMilli()
}
