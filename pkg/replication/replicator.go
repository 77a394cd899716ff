// Package replication mirrors the search entries out of MongoDB into a
// relational replica. Mongo stays the write path for ingestion; the Postgres
// copy serves ad-hoc SQL analysis and acts as a second durable copy of the
// corpus the index is built from.
package replication

import (
	"context"
	"crypto/md5"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"podcast-search/pkg/db"
	"podcast-search/pkg/domain"
)

// Config wires the replication dependencies.
type Config struct {
	Mongo    *db.Client
	Postgres db.SQLProvider
}

// Replicator copies search entries from MongoDB to Postgres.
//
// This is a one-shot, "copy everything" flow: rows already present in the
// replica are skipped, new ones are inserted.
type Replicator struct {
	mongo *db.Client
	pg    db.SQLProvider
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Mongo == nil {
		return nil, fmt.Errorf("mongo client is required")
	}
	if cfg.Postgres == nil {
		return nil, fmt.Errorf("postgres client is required")
	}
	return &Replicator{
		mongo: cfg.Mongo,
		pg:    cfg.Postgres,
	}, nil
}

// ReplicateEntriesMongoToPostgres reads all search entries from Mongo and
// inserts the ones missing from the Postgres `search_entry` table.
// Entries are processed in batches so existing-ID checks stay bounded.
func (r *Replicator) ReplicateEntriesMongoToPostgres(ctx context.Context) error {
	if err := r.ensureEntrySchema(ctx); err != nil {
		return err
	}

	entries, err := r.mongo.GetAllEntries(ctx)
	if err != nil {
		return fmt.Errorf("read entries from mongo: %w", err)
	}

	log.Printf("Loaded %d entries from Mongo, processing in batches...", len(entries))

	totalProcessed, totalInserted, err := r.processBatches(ctx, entries)
	if err != nil {
		return err
	}

	log.Printf("Replication complete: processed %d entries, inserted %d new entries", totalProcessed, totalInserted)
	return nil
}

// processBatches fans the batches out over a small worker pool and returns
// total processed and inserted counts.
func (r *Replicator) processBatches(ctx context.Context, entries []domain.SearchEntry) (int, int, error) {
	const processBatchSize = 500
	const numWorkers = 5

	type batchJob struct {
		batch []domain.SearchEntry
		start int
		end   int
	}

	type batchResult struct {
		processed int
		inserted  int
		err       error
	}

	numBatches := (len(entries) + processBatchSize - 1) / processBatchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(entries); start += processBatchSize {
		end := start + processBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		jobs <- batchJob{batch: entries[start:end], start: start, end: end}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				inserted, err := r.processBatch(ctx, job.batch, job.start, job.end)
				results <- batchResult{
					processed: len(job.batch),
					inserted:  inserted,
					err:       err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	totalProcessed := 0
	totalInserted := 0
	for result := range results {
		if result.err != nil {
			return totalProcessed, totalInserted, result.err
		}
		totalProcessed += result.processed
		totalInserted += result.inserted
		if totalProcessed%5000 == 0 {
			log.Printf("Progress: processed %d/%d entries, inserted %d new entries", totalProcessed, len(entries), totalInserted)
		}
	}

	log.Printf("Progress: processed %d/%d entries, inserted %d new entries", totalProcessed, len(entries), totalInserted)

	return totalProcessed, totalInserted, nil
}

// processBatch checks which IDs already exist, filters them out, and inserts
// the remainder in one transaction.
func (r *Replicator) processBatch(ctx context.Context, batch []domain.SearchEntry, start, end int) (int, error) {
	existing, err := r.checkIDsExistInPostgres(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("check existing IDs for batch [%d:%d]: %w", start, end, err)
	}

	toInsert := filterNewEntriesByID(batch, existing)
	if len(toInsert) == 0 {
		return 0, nil
	}

	if err := r.insertEntriesTx(ctx, toInsert); err != nil {
		return 0, fmt.Errorf("insert batch [%d:%d]: %w", start, end, err)
	}

	return len(toInsert), nil
}

func (r *Replicator) ensureEntrySchema(ctx context.Context) error {
	if r.pg.DB() == nil {
		return fmt.Errorf("postgres DB not connected")
	}

	// The entry ID is already unique per episode+offset, so it doubles as
	// the primary key.
	const ddl = `
CREATE TABLE IF NOT EXISTS search_entry (
  id TEXT PRIMARY KEY,
  episode_id TEXT NOT NULL,
  start_ms BIGINT NOT NULL,
  end_ms BIGINT NOT NULL,
  text TEXT NOT NULL DEFAULT '',
  episode_published_ms BIGINT NOT NULL DEFAULT 0
);`

	if _, err := r.pg.DB().ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create search_entry table: %w", err)
	}
	return nil
}

// checkIDsExistInPostgres checks which entry IDs from the batch already exist
// in the replica, batch by batch rather than loading every ID at once.
func (r *Replicator) checkIDsExistInPostgres(ctx context.Context, batch []domain.SearchEntry) (map[string]bool, error) {
	if r.pg.DB() == nil {
		return nil, fmt.Errorf("postgres DB not connected")
	}
	if len(batch) == 0 {
		return map[string]bool{}, nil
	}

	ids := make([]interface{}, 0, len(batch))
	for _, e := range batch {
		if e.ID != "" {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args := buildIDInQuery(ids)
	rows, err := r.pg.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		if id != "" {
			set[id] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return set, nil
}

// buildIDInQuery builds a SELECT ... IN query for the given IDs. The leading
// comment makes each batch's query text unique so pgx does not try to share
// one cached prepared statement across the worker goroutines.
func buildIDInQuery(ids []interface{}) (string, []interface{}) {
	var hashSuffix string
	if len(ids) > 0 {
		if idStr, ok := ids[0].(string); ok {
			hash := md5.Sum([]byte(idStr))
			hashSuffix = fmt.Sprintf("%x", hash[:4])
		}
	}
	query := fmt.Sprintf(`/* q_%d_%s */ SELECT id FROM search_entry WHERE id IN (`, len(ids), hashSuffix)
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query += ")"
	return query, args
}

func filterNewEntriesByID(all []domain.SearchEntry, existing map[string]bool) []domain.SearchEntry {
	if existing == nil {
		existing = map[string]bool{}
	}

	out := make([]domain.SearchEntry, 0, len(all))
	for _, e := range all {
		if e.ID == "" {
			continue
		}
		if existing[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// insertEntriesTx inserts a batch of entries within a transaction.
func (r *Replicator) insertEntriesTx(ctx context.Context, batch []domain.SearchEntry) error {
	tx, err := r.pg.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertQuery = `
INSERT INTO search_entry (id, episode_id, start_ms, end_ms, text, episode_published_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range batch {
		if e.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.EpisodeID, e.StartMs, e.EndMs, e.Text, e.EpisodePublishedUnixMs); err != nil {
			return fmt.Errorf("insert entry id=%q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
