package bayes

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrPoolClosed is returned by Run after Close.
var ErrPoolClosed = errors.New("inference pool closed")

type job struct {
	task  Task
	infer func(Task) Result
	out   *Result
	done  *sync.WaitGroup
}

// Pool is a fixed set of worker goroutines running inference tasks. Workers
// start in NewPool and stop in Close.
type Pool struct {
	size    int
	jobs    chan job
	workers sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts size workers.
func NewPool(size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("inference pool size must be at least 1, got %d", size)
	}
	p := &Pool{size: size, jobs: make(chan job)}
	p.workers.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	logrus.Infof("inference pool started with %d workers", size)
	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) work() {
	defer p.workers.Done()
	for j := range p.jobs {
		*j.out = runJob(j)
		j.done.Done()
	}
}

// runJob runs one task, converting a panic into a per-task error.
func runJob(j job) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 1<<14)
			stack = stack[:runtime.Stack(stack, false)]
			logrus.Warnf("inference for vehicle %d (%s) panicked: %v\n%s", j.task.VehicleID, j.task.Model, r, stack)
			res = j.task.result()
			res.Err = fmt.Errorf("inference panicked: %v", r)
		}
	}()
	return j.infer(j.task)
}

// Run executes infer for every task on the workers and blocks until all of
// them have returned. Results are in task order. Tasks not yet handed to a
// worker when ctx is cancelled get ctx.Err() as their error, and Run returns
// that error too.
func (p *Pool) Run(ctx context.Context, tasks []Task, infer func(Task) Result) ([]Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	results := make([]Result, len(tasks))
	var done sync.WaitGroup
	var ctxErr error
	for i, t := range tasks {
		if ctxErr == nil {
			ctxErr = ctx.Err()
		}
		if ctxErr == nil {
			done.Add(1)
			select {
			case p.jobs <- job{task: t, infer: infer, out: &results[i], done: &done}:
				continue
			case <-ctx.Done():
				done.Done()
				ctxErr = ctx.Err()
			}
		}
		results[i] = t.result()
		results[i].Err = ctxErr
	}
	done.Wait()
	return results, ctxErr
}

// Close stops the workers after in-flight tasks finish. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
	p.workers.Wait()
	logrus.Infof("inference pool stopped")
}
