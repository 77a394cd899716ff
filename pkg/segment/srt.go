package segment

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"podcast-search/pkg/domain"
)

// ParseSRT reads SubRip (and the timestamp-compatible WebVTT) subtitle content
// and returns ordered caption lines.
//
// Timestamps must parse as HH:MM:SS,mmm (SRT) or HH:MM:SS.mmm (VTT). An
// unparsable timestamp is a MalformedInputError for the whole episode; it is
// never defaulted to zero.
func ParseSRT(r io.Reader) ([]domain.CaptionLine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		lines   []domain.CaptionLine
		ordinal int
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "WEBVTT" || strings.HasPrefix(line, "NOTE") {
			continue
		}

		// A bare number is an SRT cue counter; the timing line follows.
		if _, err := strconv.Atoi(line); err == nil && !strings.Contains(line, "-->") {
			continue
		}

		if !strings.Contains(line, "-->") {
			// Text line without a preceding timing line is stray content
			// (e.g. VTT cue settings); skip it.
			continue
		}

		startMs, endMs, err := parseTimingLine(line, ordinal)
		if err != nil {
			return nil, err
		}

		var texts []string
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				break
			}
			texts = append(texts, text)
		}

		lines = append(lines, domain.CaptionLine{
			Ordinal: ordinal,
			StartMs: startMs,
			EndMs:   endMs,
			Text:    strings.Join(texts, " "),
		})
		ordinal++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read subtitle stream: %w", err)
	}

	return lines, nil
}

func parseTimingLine(line string, ordinal int) (int64, int64, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, &MalformedInputError{Ordinal: ordinal, Value: line, Reason: "missing --> separator"}
	}

	startMs, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, &MalformedInputError{Ordinal: ordinal, Value: strings.TrimSpace(parts[0]), Reason: "unparsable start timestamp"}
	}

	// VTT cue settings may trail the end timestamp.
	endRaw := strings.TrimSpace(parts[1])
	if i := strings.IndexByte(endRaw, ' '); i >= 0 {
		endRaw = endRaw[:i]
	}
	endMs, err := parseTimestamp(endRaw)
	if err != nil {
		return 0, 0, &MalformedInputError{Ordinal: ordinal, Value: endRaw, Reason: "unparsable end timestamp"}
	}

	if endMs < startMs {
		return 0, 0, &MalformedInputError{Ordinal: ordinal, Value: line, Reason: "end before start"}
	}

	return startMs, endMs, nil
}

// parseTimestamp parses "HH:MM:SS,mmm" or "HH:MM:SS.mmm" into milliseconds.
func parseTimestamp(ts string) (int64, error) {
	sep := strings.IndexAny(ts, ",.")
	if sep < 0 {
		return 0, fmt.Errorf("missing millisecond separator in %q", ts)
	}

	clock := ts[:sep]
	msPart := ts[sep+1:]
	if len(msPart) != 3 {
		return 0, fmt.Errorf("milliseconds must be three digits in %q", ts)
	}

	fields := strings.Split(clock, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("clock must be HH:MM:SS in %q", ts)
	}

	hours, err := strconv.Atoi(fields[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid hours in %q", ts)
	}
	minutes, err := strconv.Atoi(fields[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", ts)
	}
	seconds, err := strconv.Atoi(fields[2])
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid seconds in %q", ts)
	}
	millis, err := strconv.Atoi(msPart)
	if err != nil || millis < 0 {
		return 0, fmt.Errorf("invalid milliseconds in %q", ts)
	}

	total := int64(hours)*3600000 + int64(minutes)*60000 + int64(seconds)*1000 + int64(millis)
	return total, nil
}
