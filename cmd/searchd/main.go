package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"podcast-search/pkg/artifact"
	"podcast-search/pkg/indexcache"
	"podcast-search/pkg/query"
	"podcast-search/pkg/request"
)

func main() {
	var (
		addr = flag.String("addr", ":8080", "HTTP listen address")

		artifactPath = flag.String("artifact", "", "Local index artifact path (used when Supabase flags are empty)")
		supabaseURL  = flag.String("supabase-url", os.Getenv("SUPABASE_URL"), "Supabase project URL")
		supabaseKey  = flag.String("supabase-key", os.Getenv("SUPABASE_KEY"), "Supabase service role key")
		bucket       = flag.String("bucket", "search-index", "Supabase storage bucket")
		object       = flag.String("object", "index.bin", "Object key for the index artifact")

		tmpDir = flag.String("tmp-dir", os.TempDir(), "Directory for artifact download staging")
		warm   = flag.Bool("warm", false, "Load the index before accepting traffic")
	)
	flag.Parse()

	store, err := pickStore(*artifactPath, *supabaseURL, *supabaseKey, *bucket, *object)
	if err != nil {
		log.Fatalf("Failed to configure artifact store: %v", err)
	}

	cache := indexcache.New(store, *tmpDir)
	engine := query.NewEngine(cache)
	handler := request.NewHandler(engine)

	if *warm {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		ix, err := cache.GetOrLoad(ctx, false)
		cancel()
		if err != nil {
			log.Fatalf("Failed to warm index: %v", err)
		}
		log.Printf("Index warmed: %d entries", ix.Count())
	}

	mux := http.NewServeMux()
	mux.Handle("/search", handler)
	mux.Handle("/", handler)

	server := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Listening on %s", *addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func pickStore(artifactPath, supabaseURL, supabaseKey, bucket, object string) (artifact.Store, error) {
	if supabaseURL != "" && supabaseKey != "" {
		return artifact.NewSupabaseStore(artifact.SupabaseConfig{
			SupabaseURL: supabaseURL,
			SupabaseKey: supabaseKey,
			Bucket:      bucket,
			Key:         object,
		})
	}
	if artifactPath == "" {
		artifactPath = "index.bin"
	}
	return artifact.NewFileStore(artifactPath), nil
}
