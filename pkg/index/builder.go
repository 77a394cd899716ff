package index

import (
	"errors"
	"math"

	"podcast-search/pkg/domain"
)

var (
	ErrAlreadyCommitted = errors.New("index builder already committed")
	ErrNotCommitted     = errors.New("index builder not committed")
)

// Builder accumulates search entries and turns them into a committed Index.
// Insertion is batched: Add does no index work beyond deduplication, and a
// single Commit computes postings, document statistics, and IDF for the whole
// corpus at once.
type Builder struct {
	entries   []domain.SearchEntry
	idToNum   map[string]uint32
	committed bool
}

func NewBuilder() *Builder {
	return &Builder{idToNum: make(map[string]uint32)}
}

// Add queues entries for indexing. A later entry with an ID already queued
// replaces the earlier one, matching the replace-not-mutate reprocessing
// semantics of episode entries.
func (b *Builder) Add(entries ...domain.SearchEntry) error {
	if b.committed {
		return ErrAlreadyCommitted
	}
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if num, ok := b.idToNum[e.ID]; ok {
			b.entries[num] = e
			continue
		}
		b.idToNum[e.ID] = uint32(len(b.entries))
		b.entries = append(b.entries, e)
	}
	return nil
}

// Commit finalizes the index structure. After Commit the builder cannot accept
// further entries.
func (b *Builder) Commit() (*Index, error) {
	if b.committed {
		return nil, ErrAlreadyCommitted
	}
	b.committed = true

	ix := &Index{
		entries:    b.entries,
		idToNum:    b.idToNum,
		terms:      make(map[string]*termState),
		docLengths: make([]uint32, len(b.entries)),
	}

	for num, e := range b.entries {
		tokens := Tokenize(e.Text)
		if len(tokens) == 0 {
			continue
		}

		termFreq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			termFreq[t]++
		}

		ix.docLengths[num] = uint32(len(tokens))
		ix.totalLen += int64(len(tokens))

		for term, tf := range termFreq {
			st := ix.terms[term]
			if st == nil {
				st = &termState{}
				ix.terms[term] = st
			}
			if tf > math.MaxUint16 {
				tf = math.MaxUint16
			}
			st.Postings = append(st.Postings, posting{Doc: uint32(num), TF: uint16(tf)})
		}
	}

	if len(ix.entries) > 0 {
		ix.avgDocLen = float64(ix.totalLen) / float64(len(ix.entries))
	}

	// IDF depends on the final corpus size, so it is computed once here.
	for _, st := range ix.terms {
		st.IDF = idf(len(st.Postings), len(ix.entries))
	}

	return ix, nil
}

func idf(df, docCount int) float64 {
	if df <= 0 || docCount <= 0 {
		return 0
	}
	n := float64(docCount)
	d := float64(df)
	v := math.Log(1 + (n-d+0.5)/(d+0.5))
	if v < 0 {
		return 0
	}
	return v
}
