package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SummaryCache stores successful summaries keyed by model and full prompt.
type SummaryCache struct {
	Dir string
	// StrictPerms enforces 0700 on the directory and 0600 on files.
	StrictPerms bool
}

type summaryEntry struct {
	Model   string    `json:"model"`
	Text    string    `json:"text"`
	SavedAt time.Time `json:"saved_at"`
}

// KeyFrom builds a cache key from the model name and the prompt sent to it.
func KeyFrom(model string, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + prompt))
	return hex.EncodeToString(h[:])
}

func (c *SummaryCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns the cached summary for key. A missing or unreadable entry is a
// miss, not an error.
func (c *SummaryCache) Get(_ context.Context, key string) (string, bool, error) {
	if c == nil {
		return "", false, ErrNoDir
	}
	if err := ensureDir(c.Dir, c.StrictPerms); err != nil {
		return "", false, err
	}
	p := c.pathFor(key)
	b, err := os.ReadFile(p)
	if err != nil {
		return "", false, nil
	}
	var e summaryEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return "", false, nil
	}
	// Touch mtime so age-based purges keep entries that are still used.
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return e.Text, true, nil
}

// Save writes a summary to the cache.
func (c *SummaryCache) Save(_ context.Context, key string, model string, text string) error {
	if c == nil {
		return ErrNoDir
	}
	if err := ensureDir(c.Dir, c.StrictPerms); err != nil {
		return err
	}
	b, err := json.Marshal(summaryEntry{Model: model, Text: text, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return writeAtomic(c.pathFor(key), b, fileMode(c.StrictPerms))
}
