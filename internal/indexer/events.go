package indexer

import (
	"encoding/json"
	"fmt"
	"time"
)

// StorageEvent is the notification emitted when an object lands in the video
// bucket. It is the consuming end of the upload service's ingestion event.
type StorageEvent struct {
	Bucket      string    `json:"bucket"`
	ObjectKey   string    `json:"object_key"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// DecodeStorageEvent parses a raw event payload.
func DecodeStorageEvent(payload []byte) (StorageEvent, error) {
	var evt StorageEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return StorageEvent{}, fmt.Errorf("decode storage event: %w", err)
	}
	if evt.ObjectKey == "" {
		return StorageEvent{}, fmt.Errorf("storage event has no object key")
	}
	return evt, nil
}
