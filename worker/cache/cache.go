package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 10 * time.Minute
)

// Snapshot mirrors the gateway-side cache entry; both sides must agree on the
// JSON shape.
type Snapshot struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	DocxURL  string `json:"docxUrl,omitempty"`
	PdfURL   string `json:"pdfUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

func (c *StatusCache) Set(ctx context.Context, jobID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statusKeyPrefix+jobID, data, statusTTL).Err()
}
