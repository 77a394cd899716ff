package index

import (
	"errors"
	"fmt"
	"sort"

	"podcast-search/pkg/domain"
)

// BM25 parameters.
const (
	bm25K1 = 1.2  // Term frequency saturation
	bm25B  = 0.75 // Length normalization
)

var ErrUnknownSearchField = errors.New("unknown search field")

type posting struct {
	Doc uint32 `msgpack:"d"`
	TF  uint16 `msgpack:"t"`
}

type termState struct {
	Postings []posting `msgpack:"p"`
	IDF      float64   `msgpack:"i"`
}

// Index is a committed, read-only BM25 index over search entries. Entries are
// addressed by compact document numbers (their position in the entries slice);
// the full entry records are stored alongside the postings so hits can be
// returned, filtered, and sorted without a second store.
//
// An Index is never mutated after Commit or Restore. Rebuilding produces a
// brand-new artifact that replaces the old one wholesale.
type Index struct {
	entries    []domain.SearchEntry
	idToNum    map[string]uint32
	terms      map[string]*termState
	docLengths []uint32
	avgDocLen  float64
	totalLen   int64
}

// Scored is one relevance-ranked match.
type Scored struct {
	Entry domain.SearchEntry
	Score float64
}

// Count returns the number of indexed entries.
func (ix *Index) Count() int {
	return len(ix.entries)
}

// Entry returns the stored entry for an ID.
func (ix *Index) Entry(id string) (domain.SearchEntry, bool) {
	num, ok := ix.idToNum[id]
	if !ok {
		return domain.SearchEntry{}, false
	}
	return ix.entries[num], true
}

// Search runs a BM25 full-text search of query over the given fields and
// returns every matching entry ranked by relevance, ties broken by entry ID
// so identical corpora answer identically. The caller paginates; returning
// the full match set is what makes totalHits exact.
func (ix *Index) Search(query string, fields []string) ([]Scored, error) {
	for _, f := range fields {
		if f != domain.FieldText {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSearchField, f)
		}
	}

	terms := Tokenize(query)
	if len(terms) == 0 || len(ix.entries) == 0 || ix.avgDocLen <= 0 {
		return nil, nil
	}

	// Repeated query terms weight their postings proportionally.
	termWeights := make(map[string]float64, len(terms))
	for _, t := range terms {
		termWeights[t]++
	}

	scores := make(map[uint32]float64)
	for term, weight := range termWeights {
		st := ix.terms[term]
		if st == nil {
			continue
		}
		for _, p := range st.Postings {
			docLen := ix.docLengths[p.Doc]
			if docLen == 0 {
				continue
			}
			tf := float64(p.TF)
			numerator := tf * (bm25K1 + 1)
			denominator := tf + bm25K1*(1-bm25B+bm25B*(float64(docLen)/ix.avgDocLen))
			scores[p.Doc] += weight * st.IDF * (numerator / denominator)
		}
	}

	out := make([]Scored, 0, len(scores))
	for doc, score := range scores {
		out = append(out, Scored{Entry: ix.entries[doc], Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entry.ID < out[j].Entry.ID
	})

	return out, nil
}
