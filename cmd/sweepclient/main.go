// Command sweepclient drives a full manual sweep against a running server by
// calling /extract-graph until the listing is exhausted.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

type stats struct {
	Files                int `json:"files"`
	Chunks               int `json:"chunks"`
	EntitiesCreated      int `json:"entitiesCreated"`
	RelationshipsCreated int `json:"relationshipsCreated"`
	FilesFailed          int `json:"filesFailed"`
}

type batchResponse struct {
	Success    bool    `json:"success"`
	Stats      stats   `json:"stats"`
	NextCursor *string `json:"next_cursor"`
	Error      string  `json:"error"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	bucket := flag.String("bucket", "RESEARCH_DOCS", "bucket binding name")
	prefix := flag.String("prefix", "uploads/", "key prefix")
	limit := flag.Int("limit", 5, "documents per batch")
	pause := flag.Duration("pause", time.Second, "delay between batches")
	flag.Parse()

	client := &http.Client{Timeout: 15 * time.Minute}
	var (
		cursor *string
		total  stats
		batch  int
	)

	for {
		batch++
		resp, err := sendBatch(client, *baseURL, map[string]interface{}{
			"limit":  *limit,
			"cursor": cursor,
			"bucket": *bucket,
			"prefix": *prefix,
		})
		if err != nil {
			color.Red("FAILED: batch %d: %v", batch, err)
			os.Exit(1)
		}

		total.Files += resp.Stats.Files
		total.Chunks += resp.Stats.Chunks
		total.EntitiesCreated += resp.Stats.EntitiesCreated
		total.RelationshipsCreated += resp.Stats.RelationshipsCreated
		total.FilesFailed += resp.Stats.FilesFailed

		color.Green("batch %d: files=%d chunks=%d entities=%d relationships=%d",
			batch, resp.Stats.Files, resp.Stats.Chunks, resp.Stats.EntitiesCreated, resp.Stats.RelationshipsCreated)
		if resp.Stats.FilesFailed > 0 {
			color.Yellow("batch %d: %d files failed", batch, resp.Stats.FilesFailed)
		}

		if resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor
		time.Sleep(*pause)
	}

	fmt.Printf("Sweep complete: %d files, %d chunks, %d entities, %d relationships, %d failed\n",
		total.Files, total.Chunks, total.EntitiesCreated, total.RelationshipsCreated, total.FilesFailed)
}

func sendBatch(client *http.Client, baseURL string, payload interface{}) (*batchResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/extract-graph", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var out batchResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("server error: %s", out.Error)
	}
	return &out, nil
}
