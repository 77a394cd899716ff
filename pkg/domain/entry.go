package domain

import "fmt"

// SearchEntry is the unit of search: a merged group of caption lines forming one
// indexable, time-bounded slice of an episode.
//
// Entries are immutable once created. Reprocessing an episode's transcript
// regenerates the full set for that episode rather than mutating entries in
// place.
type SearchEntry struct {
	ID                     string `json:"id" bson:"id" msgpack:"id"`
	EpisodeID              string `json:"episodeId" bson:"episode_id" msgpack:"ep"`
	StartMs                int64  `json:"startMs" bson:"start_ms" msgpack:"s"`
	EndMs                  int64  `json:"endMs" bson:"end_ms" msgpack:"e"`
	Text                   string `json:"text" bson:"text" msgpack:"t"`
	EpisodePublishedUnixMs int64  `json:"episodePublishedUnixMs" bson:"episode_published_unix_ms" msgpack:"p"`
}

// EntryID builds the deterministic entry identifier for an episode and chunk
// start time.
func EntryID(episodeID string, startMs int64) string {
	return fmt.Sprintf("%s_%d", episodeID, startMs)
}
