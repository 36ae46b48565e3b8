// Package jobqueue implements a durable Postgres-backed job queue. Jobs are
// rows; workers lease due rows with SKIP LOCKED, run the registered handler
// for the job's topic, and record the outcome in a durable result store.
package jobqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/banking-transfer-engine/internal/domain/job"
)

// Handler processes one job. The returned value is marshaled and saved as the
// job's durable result; a non-nil error sends the job down the retry path.
type Handler func(ctx context.Context, j *job.Job) (any, error)

// Registry maps topics to their handlers. Registration happens during worker
// startup, before polling begins.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a topic, replacing any previous binding
func (r *Registry) Register(topic string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = h
}

// Resolve returns the handler bound to the topic
func (r *Registry) Resolve(topic string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[topic]
	if !ok {
		return nil, fmt.Errorf("no handler registered for topic %q", topic)
	}
	return h, nil
}
