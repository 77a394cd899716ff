package segment

import (
	"strings"

	"podcast-search/pkg/domain"
)

// Chunking bounds for one search entry. A chunk keeps accumulating caption
// lines until it reaches a sentence boundary past the minimum duration, or is
// cut unconditionally at the maximum duration.
const (
	MinChunkDurationMs int64 = 15000
	MaxChunkDurationMs int64 = 30000
)

// Segment converts an episode's ordered caption lines into search entries.
//
// The scan is a single greedy forward pass. After each appended line the
// current chunk is finalized when, in precedence order:
//  1. the line is the last caption of the episode
//  2. the chunk duration reached MaxChunkDurationMs
//  3. the chunk duration reached MinChunkDurationMs and the line ends with
//     sentence-terminal punctuation
//
// Segment is pure: identical input yields an identical entry slice.
func Segment(lines []domain.CaptionLine, episodeID string, episodePublishedUnixMs int64) ([]domain.SearchEntry, error) {
	kept := make([]domain.CaptionLine, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		if err := validateLine(line); err != nil {
			return nil, err
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return []domain.SearchEntry{}, nil
	}

	entries := make([]domain.SearchEntry, 0, len(kept)/4+1)

	var (
		chunkTexts []string
		chunkStart int64
		chunkEnd   int64
		inChunk    bool
	)

	finalize := func() {
		text := strings.TrimSpace(strings.Join(chunkTexts, " "))
		entries = append(entries, domain.SearchEntry{
			ID:                     domain.EntryID(episodeID, chunkStart),
			EpisodeID:              episodeID,
			StartMs:                chunkStart,
			EndMs:                  chunkEnd,
			Text:                   text,
			EpisodePublishedUnixMs: episodePublishedUnixMs,
		})
		chunkTexts = nil
		inChunk = false
	}

	for i, line := range kept {
		if !inChunk {
			chunkStart = line.StartMs
			inChunk = true
		}
		chunkEnd = line.EndMs
		chunkTexts = append(chunkTexts, normalizeWhitespace(line.Text))

		duration := chunkEnd - chunkStart
		switch {
		case i == len(kept)-1:
			finalize()
		case duration >= MaxChunkDurationMs:
			finalize()
		case duration >= MinChunkDurationMs && endsSentence(line.Text):
			finalize()
		}
	}

	return entries, nil
}

func validateLine(line domain.CaptionLine) error {
	if line.StartMs < 0 || line.EndMs < 0 {
		return &MalformedInputError{Ordinal: line.Ordinal, Reason: "negative timestamp"}
	}
	if line.EndMs < line.StartMs {
		return &MalformedInputError{Ordinal: line.Ordinal, Reason: "end before start"}
	}
	return nil
}

func endsSentence(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}

// normalizeWhitespace collapses runs of whitespace into single spaces for a
// compact searchable string.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
