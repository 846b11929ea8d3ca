// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/indexit/core"
)

const (
	// DefaultQueueDepth is the submission queue limit; submissions beyond it
	// fail fast with ErrQueueFull.
	DefaultQueueDepth = 1000

	// DefaultTaskTimeout is the per-task deadline.
	DefaultTaskTimeout = 5 * time.Minute
)

// Task is one unit of embedding work.
type Task struct {
	// ID identifies the segment this task embeds.
	ID core.ID

	// Text is the content to embed.
	Text string

	// Model is the logical model identifier from the document.
	Model string

	// Provider is the provider key the model resolves under.
	Provider string

	// CustomModelName, when set, bypasses model mapping entirely.
	CustomModelName string
}

// Result carries the outcome of one Task. Err is set on failure; the other
// fields are only meaningful when Err is nil.
type Result struct {
	ID         core.ID
	Embedding  []float32
	Dimensions int
	Model      string
	Err        error
}

// EmbedFunc produces an embedding vector for one task's text.
type EmbedFunc func(ctx context.Context, task Task) ([]float32, error)

// Pool is a bounded worker pool for embedding tasks. One Pool is shared by
// all documents being indexed; its counters are protected by a single lock,
// which is not a bottleneck next to embedding calls that take tens of
// milliseconds.
type Pool struct {
	pool        *ants.Pool
	size        int
	queueDepth  int
	taskTimeout time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	queued int
	active map[core.ID]struct{}
	closed bool
}

// Option is a functional option for configuring a Pool.
type Option func(*Pool)

// WithSize sets the number of workers. Default is NumCPU-1, minimum 1.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithQueueDepth sets the submission queue limit.
func WithQueueDepth(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queueDepth = n
		}
	}
}

// WithTaskTimeout sets the per-task deadline.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.taskTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// New creates a Pool and starts its workers.
func New(opts ...Option) (*Pool, error) {
	p := &Pool{
		queueDepth:  DefaultQueueDepth,
		taskTimeout: DefaultTaskTimeout,
		active:      make(map[core.ID]struct{}),
		logger:      slog.Default().With("component", "workerpool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.size == 0 {
		p.size = DefaultSize()
	}

	inner, err := ants.NewPool(p.size, ants.WithMaxBlockingTasks(p.queueDepth))
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	p.pool = inner

	p.logger.Debug("worker pool started", "size", p.size, "queue_depth", p.queueDepth)
	return p, nil
}

// DefaultSize is the worker count used when none is configured: one worker
// per CPU minus one left for the caller, minimum 1.
func DefaultSize() int {
	size := runtime.NumCPU() - 1
	if size < 1 {
		size = 1
	}
	return size
}

// Process runs all tasks through the pool and collects one Result per task,
// in task order. A full queue, a panic, or a timeout fails only the affected
// task; the rest of the batch proceeds. Process blocks until every task has
// a result.
func (p *Pool) Process(ctx context.Context, tasks []Task, embed EmbedFunc) []Result {
	results := make([]Result, len(tasks))
	channels := make([]chan Result, len(tasks))

	for i, task := range tasks {
		ch := make(chan Result, 1)
		if err := p.submit(ctx, task, embed, ch); err != nil {
			results[i] = Result{ID: task.ID, Model: task.Model, Err: err}
			continue
		}
		channels[i] = ch
	}

	for i, ch := range channels {
		if ch == nil {
			continue
		}
		select {
		case res := <-ch:
			results[i] = res
		case <-time.After(p.taskTimeout):
			// The worker keeps running; its late result lands in the
			// buffered channel and is garbage collected with it.
			p.logger.Warn("task timed out", "task", tasks[i].ID, "timeout", p.taskTimeout)
			results[i] = Result{ID: tasks[i].ID, Model: tasks[i].Model, Err: ErrTaskTimeout}
		case <-ctx.Done():
			results[i] = Result{ID: tasks[i].ID, Model: tasks[i].Model, Err: ctx.Err()}
		}
	}
	return results
}

// submit enqueues one task. Fails fast with ErrQueueFull when the queue
// limit is reached.
func (p *Pool) submit(ctx context.Context, task Task, embed EmbedFunc, ch chan<- Result) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if p.queued >= p.queueDepth {
		p.mu.Unlock()
		return ErrQueueFull
	}
	p.queued++
	p.mu.Unlock()

	err := p.pool.Submit(func() {
		p.mu.Lock()
		p.queued--
		p.active[task.ID] = struct{}{}
		p.mu.Unlock()

		defer func() {
			p.mu.Lock()
			delete(p.active, task.ID)
			p.mu.Unlock()

			if r := recover(); r != nil {
				p.logger.Error("task panicked", "task", task.ID, "panic", r)
				ch <- Result{ID: task.ID, Model: task.Model, Err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
			}
		}()

		vector, err := embed(ctx, task)
		if err != nil {
			ch <- Result{ID: task.ID, Model: task.Model, Err: err}
			return
		}
		ch <- Result{
			ID:         task.ID,
			Embedding:  vector,
			Dimensions: len(vector),
			Model:      task.Model,
		}
	})
	if err != nil {
		p.mu.Lock()
		p.queued--
		p.mu.Unlock()
		if errors.Is(err, ants.ErrPoolOverload) {
			return ErrQueueFull
		}
		return err
	}
	return nil
}

// Stats reports the pool's current occupancy.
func (p *Pool) Stats() (running, queued, capacity int) {
	p.mu.Lock()
	queued = p.queued
	p.mu.Unlock()
	return p.pool.Running(), queued, p.pool.Cap()
}

// Active reports whether a task for the given ID is currently running.
func (p *Pool) Active(id core.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[id]
	return ok
}

// Close stops accepting tasks and releases the workers after in-flight
// tasks finish.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.pool.ReleaseTimeout(30 * time.Second) //nolint:errcheck
}
