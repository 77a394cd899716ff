package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

// healthcheck probes a running search service with a health-check-only
// request. It reports two durations: total wall clock (network plus cold
// start) and the service's own processing time, so a slow probe can be
// attributed to either the index load or the network path.
func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080/search", "Search service URL")
		timeout = flag.Duration("timeout", 2*time.Minute, "Probe timeout (cold starts download the index)")
	)
	flag.Parse()

	u, err := url.Parse(*baseURL)
	if err != nil {
		log.Fatalf("Invalid URL: %v", err)
	}
	q := u.Query()
	q.Set("isHealthCheckOnly", "true")
	u.RawQuery = q.Encode()

	client := &http.Client{Timeout: *timeout}

	start := time.Now()
	resp, err := client.Get(u.String())
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("Health check failed after %s: %v", elapsed, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Health check read failed after %s: %v", elapsed, err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("Health check returned %d after %s: %s", resp.StatusCode, elapsed, body)
		os.Exit(1)
	}

	var parsed struct {
		ProcessingTimeMs int64 `json:"processingTimeMs"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("Health check response not parseable after %s: %v", elapsed, err)
		os.Exit(1)
	}

	log.Printf("Health check OK: total %s, service processing %dms", elapsed, parsed.ProcessingTimeMs)
	fmt.Println("ok")
}
