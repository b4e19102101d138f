package orchestrator

import (
	"sync"

	"github.com/aescanero/taskorch/pkg/domain"
)

// DefaultHistoryLimit is how many workflow records the coordinator keeps.
const DefaultHistoryLimit = 10

type historyAppend struct {
	record *domain.WorkflowRecord
	done   chan struct{}
}

// history is a bounded FIFO of workflow records owned by a single
// goroutine. Every read and write is a message to that goroutine.
type history struct {
	limit    int
	appendCh chan historyAppend
	readCh   chan chan []*domain.WorkflowRecord
	stopCh   chan struct{}
	doneCh   chan struct{}
	once     sync.Once
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	h := &history{
		limit:    limit,
		appendCh: make(chan historyAppend),
		readCh:   make(chan chan []*domain.WorkflowRecord),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *history) run() {
	defer close(h.doneCh)

	records := make([]*domain.WorkflowRecord, 0, h.limit)
	for {
		select {
		case <-h.stopCh:
			return
		case req := <-h.appendCh:
			if len(records) == h.limit {
				copy(records, records[1:])
				records = records[:h.limit-1]
			}
			records = append(records, req.record)
			close(req.done)
		case reply := <-h.readCh:
			out := make([]*domain.WorkflowRecord, len(records))
			copy(out, records)
			reply <- out
		}
	}
}

// add appends r, evicting the oldest record when full. It returns
// domain.ErrCoordinatorClose after close.
func (h *history) add(r *domain.WorkflowRecord) error {
	req := historyAppend{record: r, done: make(chan struct{})}
	select {
	case h.appendCh <- req:
		<-req.done
		return nil
	case <-h.doneCh:
		return domain.ErrCoordinatorClose
	}
}

// snapshot returns the records oldest first.
func (h *history) snapshot() []*domain.WorkflowRecord {
	reply := make(chan []*domain.WorkflowRecord, 1)
	select {
	case h.readCh <- reply:
		return <-reply
	case <-h.doneCh:
		return nil
	}
}

func (h *history) close() {
	h.once.Do(func() { close(h.stopCh) })
	<-h.doneCh
}
