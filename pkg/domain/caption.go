package domain

// CaptionLine is one timestamped subtitle segment produced by the transcription
// step. Ordinals are contiguous per episode; timestamps are not guaranteed
// gap-free.
type CaptionLine struct {
	Ordinal int    `json:"ordinal"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Text    string `json:"text"`
}
