package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/async"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

// Registry keeps batches by id so async submissions can be polled.
// Once over capacity the oldest finished batches are evicted.
type Registry struct {
	mu       sync.RWMutex
	batches  map[string]*Batch
	order    []string
	capacity int
}

func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 256
	}
	return &Registry{batches: make(map[string]*Batch), capacity: capacity}
}

func (r *Registry) Put(b *Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[b.ID]; !ok {
		r.order = append(r.order, b.ID)
	}
	r.batches[b.ID] = b
	r.evictLocked()
}

func (r *Registry) evictLocked() {
	for len(r.batches) > r.capacity {
		evicted := false
		for i, id := range r.order {
			b := r.batches[id]
			select {
			case <-b.Done():
			default:
				continue
			}
			delete(r.batches, id)
			r.order = append(r.order[:i], r.order[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			return
		}
	}
}

// Remove drops batch id whether or not it has finished.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[id]; !ok {
		return
	}
	delete(r.batches, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len reports how many batches are held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.batches)
}

func (r *Registry) Get(id string) (*Batch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	return b, ok
}

// Snapshot returns the current state of batch id.
func (r *Registry) Snapshot(id string) (BatchResult, error) {
	b, ok := r.Get(id)
	if !ok {
		return BatchResult{}, common.NewNotFoundError(fmt.Sprintf("batch %s not found", id))
	}
	return b.Snapshot(), nil
}

// AsyncProcessor runs queued batches looked up from a Registry.
type AsyncProcessor struct {
	Orchestrator *Orchestrator
	Registry     *Registry
}

func (p *AsyncProcessor) Process(ctx context.Context, job async.Job) error {
	b, ok := p.Registry.Get(job.BatchID)
	if !ok {
		return common.NewNotFoundError(fmt.Sprintf("batch %s not found", job.BatchID))
	}
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	res := p.Orchestrator.Run(ctx, b)
	if res.Aggregate == constants.BatchAllFailed {
		return fmt.Errorf("batch %s: every artifact failed", b.ID)
	}
	return nil
}
