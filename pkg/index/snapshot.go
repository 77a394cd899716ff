package index

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"

	"podcast-search/pkg/domain"
)

// FormatVersion is the artifact format version. Loaders reject artifacts from
// a different major version so a stale or too-new blob is rebuilt instead of
// half-read.
const FormatVersion = "1.0.0"

var (
	ErrIncompatibleVersion = errors.New("incompatible index artifact version")
	ErrCorruptArtifact     = errors.New("corrupt index artifact")
)

// snapshot is the serialized form of a committed index. The idToNum map is
// derivable from entry order and is rebuilt on restore rather than stored.
type snapshot struct {
	Version    string                `msgpack:"v"`
	Entries    []domain.SearchEntry  `msgpack:"entries"`
	Terms      map[string]*termState `msgpack:"terms"`
	DocLengths []uint32              `msgpack:"doc_lengths"`
	AvgDocLen  float64               `msgpack:"avg_doc_len"`
	TotalLen   int64                 `msgpack:"total_doc_len"`
}

// WriteTo streams the index as a gzip-compressed msgpack snapshot. The same
// entry set always produces an index that answers queries identically, though
// the bytes themselves are not guaranteed stable across encoder versions.
func (ix *Index) WriteTo(w io.Writer) error {
	gz := gzip.NewWriter(w)

	snap := snapshot{
		Version:    FormatVersion,
		Entries:    ix.entries,
		Terms:      ix.terms,
		DocLengths: ix.docLengths,
		AvgDocLen:  ix.avgDocLen,
		TotalLen:   ix.totalLen,
	}
	if err := msgpack.NewEncoder(gz).Encode(&snap); err != nil {
		_ = gz.Close()
		return fmt.Errorf("encode index snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flush compressed snapshot: %w", err)
	}
	return nil
}

// Restore stream-decodes an artifact back into a queryable index. The gzip
// reader feeds the msgpack decoder directly, so no fully-decompressed
// intermediate buffer is ever materialized.
func Restore(r io.Reader) (*Index, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open compressed stream: %v", ErrCorruptArtifact, err)
	}
	defer gz.Close()

	var snap snapshot
	if err := msgpack.NewDecoder(gz).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", ErrCorruptArtifact, err)
	}

	if !versionCompatible(snap.Version, FormatVersion) {
		return nil, fmt.Errorf("%w: artifact %q, supported %q", ErrIncompatibleVersion, snap.Version, FormatVersion)
	}
	if len(snap.DocLengths) != len(snap.Entries) {
		return nil, fmt.Errorf("%w: %d entries but %d doc lengths", ErrCorruptArtifact, len(snap.Entries), len(snap.DocLengths))
	}

	ix := &Index{
		entries:    snap.Entries,
		idToNum:    make(map[string]uint32, len(snap.Entries)),
		terms:      snap.Terms,
		docLengths: snap.DocLengths,
		avgDocLen:  snap.AvgDocLen,
		totalLen:   snap.TotalLen,
	}
	if ix.terms == nil {
		ix.terms = make(map[string]*termState)
	}
	for num, e := range ix.entries {
		ix.idToNum[e.ID] = uint32(num)
	}
	if ix.totalLen == 0 {
		for _, l := range ix.docLengths {
			ix.totalLen += int64(l)
		}
		if len(ix.entries) > 0 {
			ix.avgDocLen = float64(ix.totalLen) / float64(len(ix.entries))
		}
	}

	return ix, nil
}
