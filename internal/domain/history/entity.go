package history

import (
	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
)

// MaxItemsPerUser is the retention cap; older items are evicted first.
const MaxItemsPerUser = 10

// ItemID identifier type
type ItemID string

// Item is one saved analysis. Created once, never mutated.
type Item struct {
	ID           ItemID            `json:"id"`
	UserID       string            `json:"userId"`
	Timestamp    int64             `json:"timestamp"` // ms since epoch
	Mode         analysis.Mode     `json:"mode"`
	Audience     analysis.Audience `json:"audience"`
	Result       analysis.Result   `json:"result"`
	ThumbnailURL string            `json:"thumbnailUrl"`
	ImageCount   int               `json:"imageCount"`
}
