package workers

import (
	"fmt"

	"github.com/aescanero/taskorch/pkg/domain"
	"go.uber.org/zap"
)

// Registry holds exactly one worker per known kind.
type Registry struct {
	workers map[domain.WorkerKind]Worker
	order   []domain.WorkerKind
	logger  *zap.Logger
}

// NewRegistry registers the given workers. Registering two workers of the
// same kind, or a worker of unknown kind, is an error.
func NewRegistry(logger *zap.Logger, workers ...Worker) (*Registry, error) {
	r := &Registry{
		workers: make(map[domain.WorkerKind]Worker, len(workers)),
		logger:  logger,
	}
	for _, w := range workers {
		kind := w.Kind()
		if kind == domain.WorkerUnknown {
			return nil, fmt.Errorf("worker %s has no known kind", w.Name())
		}
		if _, exists := r.workers[kind]; exists {
			return nil, fmt.Errorf("duplicate worker for kind %s", kind)
		}
		r.workers[kind] = w
		r.order = append(r.order, kind)
	}

	logger.Info("worker registry ready", zap.Int("workers", len(r.order)))
	return r, nil
}

// Lookup returns the worker registered for kind.
func (r *Registry) Lookup(kind domain.WorkerKind) (Worker, bool) {
	w, ok := r.workers[kind]
	return w, ok
}

// Workers returns the registered workers in registration order.
func (r *Registry) Workers() []Worker {
	out := make([]Worker, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.workers[k])
	}
	return out
}

// Metrics returns a snapshot of every worker's counters keyed by name.
func (r *Registry) Metrics() map[string]domain.Metrics {
	out := make(map[string]domain.Metrics, len(r.order))
	for _, w := range r.Workers() {
		out[w.Name()] = w.Metrics()
	}
	return out
}

// Research returns the research worker if one is registered.
func (r *Registry) Research() (*ResearchWorker, bool) {
	w, ok := r.workers[domain.WorkerResearch].(*ResearchWorker)
	return w, ok
}

// Content returns the content worker if one is registered.
func (r *Registry) Content() (*ContentWorker, bool) {
	w, ok := r.workers[domain.WorkerContent].(*ContentWorker)
	return w, ok
}

// Validation returns the validation worker if one is registered.
func (r *Registry) Validation() (*ValidationWorker, bool) {
	w, ok := r.workers[domain.WorkerValidation].(*ValidationWorker)
	return w, ok
}
