package services

import (
	"log"
	"sync"
)

// Worker bounds how many pipeline runs execute concurrently. Runs abandoned
// in the queue at shutdown are not re-driven: upstream calls are single
// attempt by design, so there is no pending-run poller.
type Worker interface {
	Start()
	Stop()
	Enqueue(h *RunHandle) bool
}

type worker struct {
	orchestrator Orchestrator
	jobQueue     chan *RunHandle
	concurrency  int
	wg           sync.WaitGroup
	stopChan     chan struct{}
}

func NewWorker(orchestrator Orchestrator, concurrency int) Worker {
	return &worker{
		orchestrator: orchestrator,
		jobQueue:     make(chan *RunHandle, 100),
		concurrency:  concurrency,
		stopChan:     make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start() {
	log.Printf("🚀 Starting worker with %d concurrent pipelines\n", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processRuns(i + 1)
	}
}

// Stop implements Worker.
func (w *worker) Stop() {
	log.Println("🛑 Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	log.Println("✅ Worker stopped")
}

// Enqueue implements Worker. Returns false when the worker is shutting down
// or the queue is full.
func (w *worker) Enqueue(h *RunHandle) bool {
	select {
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue run %s\n", h.Run.ID)
		return false
	default:
	}

	select {
	case w.jobQueue <- h:
		log.Printf("📥 Run %s enqueued\n", h.Run.ID)
		return true
	default:
		log.Printf("⚠️  Run queue full, rejecting run %s\n", h.Run.ID)
		return false
	}
}

func (w *worker) processRuns(workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			log.Printf("👷 Worker #%d stopped\n", workerID)
			return
		case h := <-w.jobQueue:
			log.Printf("👷 Worker #%d processing run %s\n", workerID, h.Run.ID)
			w.orchestrator.Execute(h)
		}
	}
}
