package history

import (
	"log/slog"
	"sync"

	"github.com/inkbook/inkbook/internal/ink"
)

// DeliverFunc receives a finished snapshot together with the generation it
// was submitted under. It runs on the worker goroutine.
type DeliverFunc func(generation uint64, s *PageSnapshot)

type snapshotJob struct {
	generation uint64
	drawing    ink.Drawing
	barrier    chan struct{}
}

// SnapshotWorker builds page snapshots off the interactive goroutine. Jobs are
// processed one at a time in submission order, so deliveries for a page arrive
// in the order the drawings were submitted.
type SnapshotWorker struct {
	pageID  string
	deliver DeliverFunc

	mu     sync.Mutex
	queue  []snapshotJob
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewSnapshotWorker starts the worker goroutine for one page.
func NewSnapshotWorker(pageID string, deliver DeliverFunc) *SnapshotWorker {
	w := &SnapshotWorker{
		pageID:  pageID,
		deliver: deliver,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues d for snapshotting. It never blocks. Submissions after Close
// are dropped.
func (w *SnapshotWorker) Submit(generation uint64, d ink.Drawing) {
	w.enqueue(snapshotJob{generation: generation, drawing: d})
}

// Flush blocks until every job submitted before the call has been delivered.
func (w *SnapshotWorker) Flush() {
	barrier := make(chan struct{})
	if !w.enqueue(snapshotJob{barrier: barrier}) {
		return
	}
	select {
	case <-barrier:
	case <-w.done:
	}
}

// Close stops the worker after the queued jobs drain. It is safe to call more
// than once.
func (w *SnapshotWorker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.signal()
	<-w.done
}

func (w *SnapshotWorker) enqueue(job snapshotJob) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		slog.Debug("snapshot worker closed, dropping job", "page", w.pageID)
		return false
	}
	w.queue = append(w.queue, job)
	w.mu.Unlock()
	w.signal()
	return true
}

func (w *SnapshotWorker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *SnapshotWorker) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			closed := w.closed
			w.mu.Unlock()
			if closed {
				return
			}
			<-w.wake
			continue
		}
		job := w.queue[0]
		w.queue[0] = snapshotJob{}
		w.queue = w.queue[1:]
		w.mu.Unlock()

		if job.barrier != nil {
			close(job.barrier)
			continue
		}
		s := NewPageSnapshot(job.drawing)
		s.Hash()
		w.deliver(job.generation, s)
	}
}
