package api

import (
	"context"

	"mock-server/domain"
	"mock-server/storage"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Store abstracts the task collection for handlers.
type Store interface {
	List() []domain.Task
	Upsert(task domain.Task) (storage.Result, error)
	Delete(id int64) storage.Result
}

// ChangeSink receives task changes forwarded by a ChangePublisher.
type ChangeSink interface {
	Publish(ctx context.Context, change domain.Change) error
}

// Config tunes the HTTP layer.
type Config struct {
	// MaxBodyBytes caps POST bodies; zero selects 1 MiB.
	MaxBodyBytes int64
}

func (c Config) maxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

// statusResponse is the body of every mutating response and of client errors.
type statusResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}
