package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/canbahi79-lgtm/formatfactory/api/database"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 10 * time.Minute
)

// Snapshot is the cached view of a job served to polling clients. The worker
// writes the same JSON shape from its side of the pipeline.
type Snapshot struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	DocxURL  string `json:"docxUrl,omitempty"`
	PdfURL   string `json:"pdfUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func (sc *StatusCache) Get(ctx context.Context, jobID string) (*Snapshot, error) {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, jobID)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode status snapshot: %w", err)
	}

	return &snap, nil
}

func (sc *StatusCache) Set(ctx context.Context, jobID string, snap Snapshot) error {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, jobID)

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key, data, statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, jobID)
	return sc.cache.Del(ctx, key)
}
