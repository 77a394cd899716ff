package segment

import (
	"errors"
	"strings"
	"testing"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:03,500
the ball is played out from the back

2
00:00:03,500 --> 00:00:07,250
and the goalkeeper rolls it
to the left side

3
00:00:07,250 --> 00:00:11,000
a quick one-two on the edge of the box.
`

func TestParseSRT_Basic(t *testing.T) {
	lines, err := ParseSRT(strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("ParseSRT returned error: %v", err)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 caption lines, got %d", len(lines))
	}

	if lines[0].StartMs != 0 || lines[0].EndMs != 3500 {
		t.Errorf("line 0 span = [%d,%d], want [0,3500]", lines[0].StartMs, lines[0].EndMs)
	}
	if lines[1].Text != "and the goalkeeper rolls it to the left side" {
		t.Errorf("multi-line cue text = %q", lines[1].Text)
	}
	if lines[2].StartMs != 7250 || lines[2].EndMs != 11000 {
		t.Errorf("line 2 span = [%d,%d], want [7250,11000]", lines[2].StartMs, lines[2].EndMs)
	}
	for i := 1; i < len(lines); i++ {
		if lines[i].Ordinal != lines[i-1].Ordinal+1 {
			t.Errorf("ordinals not contiguous at index %d", i)
		}
	}
}

func TestParseSRT_VTTTimestamps(t *testing.T) {
	const vtt = `WEBVTT

00:00:01.000 --> 00:00:04.000 align:start
hello from webvtt
`
	lines, err := ParseSRT(strings.NewReader(vtt))
	if err != nil {
		t.Fatalf("ParseSRT returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 caption line, got %d", len(lines))
	}
	if lines[0].StartMs != 1000 || lines[0].EndMs != 4000 {
		t.Errorf("span = [%d,%d], want [1000,4000]", lines[0].StartMs, lines[0].EndMs)
	}
}

func TestParseSRT_UnparsableTimestampIsFatal(t *testing.T) {
	const bad = `1
00:00:xx,000 --> 00:00:03,500
broken cue
`
	_, err := ParseSRT(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected error for unparsable timestamp, got nil")
	}
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %T: %v", err, err)
	}
}

func TestParseSRT_EndBeforeStartIsFatal(t *testing.T) {
	const bad = `1
00:00:10,000 --> 00:00:05,000
time travel
`
	_, err := ParseSRT(strings.NewReader(bad))
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %T: %v", err, err)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"00:00:00,000", 0, false},
		{"00:01:02,345", 62345, false},
		{"01:00:00.000", 3600000, false},
		{"10:59:59,999", 39599999, false},
		{"00:60:00,000", 0, true},
		{"00:00:00", 0, true},
		{"garbage", 0, true},
		{"00:00:00,00", 0, true},
	}

	for _, tc := range cases {
		got, err := parseTimestamp(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseTimestamp(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTimestamp(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseTimestamp(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
