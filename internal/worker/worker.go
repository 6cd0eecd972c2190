// Package worker executa tarefas em segundo plano (logs de compliance,
// análise, varreduras assíncronas) num pool de tamanho fixo
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Constantes para configuração do pool
const (
	defaultWorkerCount = 4
	minWorkerCount     = 1
	maxWorkerCount     = 64
	defaultQueueSize   = 100
)

var (
	// ErrQueueFull é retornado quando a fila não tem espaço; Submit nunca bloqueia
	ErrQueueFull = errors.New("task queue is full")
	// ErrStopped é retornado após Stop
	ErrStopped = errors.New("task queue is stopped")
)

// TaskFunc é o trabalho executado por um worker
type TaskFunc func(ctx context.Context) error

type task struct {
	kind    string
	run     TaskFunc
	created time.Time
}

// Observer recebe o resultado de cada tarefa
type Observer interface {
	TaskFinished(kind string, err error)
	TaskRejected()
}

// Stats estatísticas do pool
type Stats struct {
	Workers   int       `json:"workers"`
	QueueSize int       `json:"queue_size"`
	Pending   int       `json:"pending"`
	Active    int32     `json:"active"`
	Submitted int64     `json:"submitted"`
	Completed int64     `json:"completed"`
	Failed    int64     `json:"failed"`
	Rejected  int64     `json:"rejected"`
	StartTime time.Time `json:"start_time"`
}

// Pool gerencia os workers e a fila de tarefas
type Pool struct {
	tasks      chan task
	numWorkers int
	logger     *logrus.Logger
	observer   Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
	stopped bool

	active    int32
	submitted int64
	completed int64
	failed    int64
	rejected  int64
	startTime time.Time
}

// NewPool cria um pool. observer pode ser nil.
func NewPool(numWorkers, queueSize int, logger *logrus.Logger, observer Observer) *Pool {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		tasks:      make(chan task, queueSize),
		numWorkers: validateWorkerCount(numWorkers),
		logger:     logger,
		observer:   observer,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// validateWorkerCount valida e retorna um número válido de workers
func validateWorkerCount(n int) int {
	if n < minWorkerCount {
		return defaultWorkerCount
	}
	if n > maxWorkerCount {
		return maxWorkerCount
	}
	return n
}

// Start inicia os workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.stopped {
		return
	}
	p.running = true
	p.startTime = time.Now()

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(i + 1)
	}
	p.logger.WithFields(logrus.Fields{
		"workers":    p.numWorkers,
		"queue_size": cap(p.tasks),
	}).Info("Task queue started")
}

// Submit enfileira uma tarefa sem bloquear
func (p *Pool) Submit(kind string, fn TaskFunc) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.tasks <- task{kind: kind, run: fn, created: time.Now()}:
		atomic.AddInt64(&p.submitted, 1)
		return nil
	default:
		atomic.AddInt64(&p.rejected, 1)
		if p.observer != nil {
			p.observer.TaskRejected()
		}
		p.logger.WithFields(logrus.Fields{
			"kind":    kind,
			"pending": len(p.tasks),
		}).Warn("Task queue full, task rejected")
		return ErrQueueFull
	}
}

// runWorker executa um worker individual
func (p *Pool) runWorker(id int) {
	defer p.wg.Done()

	for t := range p.tasks {
		p.process(id, t)
	}
	p.logger.WithField("worker_id", id).Debug("Worker stopped")
}

// process executa uma tarefa; panics viram erro
func (p *Pool) process(workerID int, t task) {
	atomic.AddInt32(&p.active, 1)
	defer atomic.AddInt32(&p.active, -1)

	start := time.Now()
	err := p.safeRun(t)

	if err != nil {
		atomic.AddInt64(&p.failed, 1)
		p.logger.WithFields(logrus.Fields{
			"worker_id": workerID,
			"kind":      t.kind,
			"duration":  time.Since(start),
			"waited":    start.Sub(t.created),
		}).WithError(err).Error("Task failed")
	} else {
		atomic.AddInt64(&p.completed, 1)
		p.logger.WithFields(logrus.Fields{
			"worker_id": workerID,
			"kind":      t.kind,
			"duration":  time.Since(start),
		}).Debug("Task completed")
	}

	if p.observer != nil {
		p.observer.TaskFinished(t.kind, err)
	}
}

func (p *Pool) safeRun(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.kind, r)
		}
	}()
	return t.run(p.ctx)
}

// Stop para de aceitar tarefas, drena a fila e aguarda os workers. Se o
// timeout expirar o contexto das tarefas é cancelado.
func (p *Pool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	defer p.cancel()
	select {
	case <-done:
		p.logFinalStats()
		return nil
	case <-time.After(timeout):
		p.logger.WithField("timeout", timeout).Warn("Timeout draining task queue")
		return fmt.Errorf("task queue did not drain within %s", timeout)
	}
}

// logFinalStats registra as estatísticas finais do pool
func (p *Pool) logFinalStats() {
	s := p.Stats()
	p.logger.WithFields(logrus.Fields{
		"submitted": s.Submitted,
		"completed": s.Completed,
		"failed":    s.Failed,
		"rejected":  s.Rejected,
	}).Info("Task queue stopped")
}

// Stats retorna as estatísticas atuais do pool
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	startTime := p.startTime
	p.mu.RUnlock()

	return Stats{
		Workers:   p.numWorkers,
		QueueSize: cap(p.tasks),
		Pending:   len(p.tasks),
		Active:    atomic.LoadInt32(&p.active),
		Submitted: atomic.LoadInt64(&p.submitted),
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
		Rejected:  atomic.LoadInt64(&p.rejected),
		StartTime: startTime,
	}
}

// IsRunning retorna se o pool está em execução
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running && !p.stopped
}
