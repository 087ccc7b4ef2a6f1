package util

import (
	"sync"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"go.uber.org/zap"
)

type Task any

// Worker is a bounded task pool: capacity sizes the queue, workers sets
// how many consumer goroutines drain it. Tasks run concurrently across
// consumers; ordering is only guaranteed with a single consumer.
type Worker struct {
	name     string
	stop     chan struct{}
	stopOnce sync.Once
	wg       *sync.WaitGroup
	handler  func(Task) error
	taskChan chan Task
	workers  int
}

func NewWorker(name string, wg *sync.WaitGroup, handler func(Task) error, capacity int, workers int) *Worker {
	if workers < 1 {
		workers = 1
	}
	return &Worker{
		taskChan: make(chan Task, capacity),
		name:     name,
		wg:       wg,
		stop:     make(chan struct{}),
		handler:  handler,
		workers:  workers,
	}
}

func (w *Worker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.consume()
	}
	logger.Info("worker started", zap.String("worker", w.name), zap.Int("consumers", w.workers))
}

func (w *Worker) consume() {
	defer w.wg.Done()
	for {
		select {
		case task := <-w.taskChan:
			err := w.handler(task)
			if err != nil {
				logger.Error("error in executing task in worker", zap.String("worker", w.name), zap.Any("task", task))
			}
		case <-w.stop:
			logger.Info("stopping worker", zap.String("worker", w.name))
			return
		}
	}
}

func (w *Worker) Sender() chan<- Task {
	return w.taskChan
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}
