package db

import (
	"context"
	"fmt"

	"podcast-search/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client wraps the MongoDB connection holding episodes and their search
// entries. Entries are the durable source every index build starts from.
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
	episodes    *mongo.Collection
	entries     *mongo.Collection
}

// NewClient creates a new database client.
func NewClient(connectionString, databaseName string) *Client {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return client with nil - error will be caught during Connect()
		return &Client{}
	}

	database := mongoClient.Database(databaseName)

	return &Client{
		mongoClient: mongoClient,
		database:    database,
		episodes:    database.Collection("episodes"),
		entries:     database.Collection("search_entries"),
	}
}

// Connect establishes connection to MongoDB.
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// SaveEpisode upserts an episode record keyed by episode ID.
func (c *Client) SaveEpisode(ctx context.Context, episode *domain.Episode) error {
	if c.episodes == nil {
		return fmt.Errorf("episodes collection not initialized")
	}

	filter := bson.M{"episode_id": episode.EpisodeID}
	update := bson.M{"$set": episode}
	opts := options.Update().SetUpsert(true)

	_, err := c.episodes.UpdateOne(ctx, filter, update, opts)
	return err
}

// ReplaceEpisodeEntries swaps in the full regenerated entry set for one
// episode. Reprocessing supersedes the old set rather than mutating it, so
// the previous entries are deleted first.
func (c *Client) ReplaceEpisodeEntries(ctx context.Context, episodeID string, entries []domain.SearchEntry) error {
	if c.entries == nil {
		return fmt.Errorf("entries collection not initialized")
	}

	if _, err := c.entries.DeleteMany(ctx, bson.M{"episode_id": episodeID}); err != nil {
		return fmt.Errorf("delete superseded entries for %s: %w", episodeID, err)
	}
	if len(entries) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e)
	}
	if _, err := c.entries.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert entries for %s: %w", episodeID, err)
	}
	return nil
}

// GetAllEntries fetches every search entry across all episodes, the input to
// an index build.
func (c *Client) GetAllEntries(ctx context.Context) ([]domain.SearchEntry, error) {
	if c.entries == nil {
		return nil, fmt.Errorf("entries collection not initialized")
	}

	// Stable order keeps index builds reproducible for the same corpus.
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := c.entries.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []domain.SearchEntry
	for cursor.Next(ctx) {
		var entry domain.SearchEntry
		if err := cursor.Decode(&entry); err != nil {
			continue // Skip invalid documents
		}
		entries = append(entries, entry)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return entries, nil
}

// GetExistingEpisodePageURLs returns which of the given episode page URLs
// have already been ingested, as a set.
func (c *Client) GetExistingEpisodePageURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if c.episodes == nil {
		return nil, fmt.Errorf("episodes collection not initialized")
	}
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}

	filter := bson.M{"page_url": bson.M{"$in": urls}}
	projection := options.Find().SetProjection(bson.M{"page_url": 1, "_id": 0})
	cursor, err := c.episodes.Find(ctx, filter, projection)
	if err != nil {
		return nil, fmt.Errorf("failed to query episode URLs: %w", err)
	}
	defer cursor.Close(ctx)

	set := make(map[string]bool)
	for cursor.Next(ctx) {
		var result struct {
			PageURL string `bson:"page_url"`
		}
		if err := cursor.Decode(&result); err != nil {
			continue // Skip invalid documents
		}
		if result.PageURL != "" {
			set[result.PageURL] = true
		}
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return set, nil
}
