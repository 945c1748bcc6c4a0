package device

import (
	"fmt"
	"log/slog"
	"sync"
)

// pass is one encoded unit of work.
type pass struct {
	label string
	run   func()
}

// commandBuffer is the CPU command buffer.
type commandBuffer struct {
	queue     *Queue
	passes    []pass
	drawables []Drawable
	handlers  []func()
	committed bool
}

func (cb *commandBuffer) Encode(label string, run func()) {
	cb.passes = append(cb.passes, pass{label: label, run: run})
}

func (cb *commandBuffer) Present(d Drawable) {
	cb.drawables = append(cb.drawables, d)
}

func (cb *commandBuffer) AddCompletedHandler(h func()) {
	cb.handlers = append(cb.handlers, h)
}

func (cb *commandBuffer) Commit() {
	if cb.committed {
		return
	}
	cb.committed = true
	cb.queue.submit(cb)
}

// complete runs completion handlers in registration order.
func (cb *commandBuffer) complete() {
	for _, h := range cb.handlers {
		h()
	}
}

// Queue executes committed command buffers one at a time, in commit order,
// on its own goroutine.
type Queue struct {
	pending chan *commandBuffer
	tracer  Tracer

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts a queue that buffers up to depth committed command buffers
// before Commit blocks. depth should be at least the number of frames in flight.
func NewQueue(depth int, tracer Tracer) (*Queue, error) {
	if depth < 1 {
		return nil, fmt.Errorf("device: queue depth must be >= 1, got %d", depth)
	}
	if tracer == nil {
		tracer = nopTracer{}
	}

	q := &Queue{
		pending: make(chan *commandBuffer, depth),
		tracer:  tracer,
	}
	q.wg.Add(1)
	go q.run()
	return q, nil
}

// NewCommandBuffer returns an empty command buffer bound to this queue.
func (q *Queue) NewCommandBuffer() (CommandBuffer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	return &commandBuffer{queue: q}, nil
}

// submit hands a committed buffer to the executor. Buffers committed after
// Close are dropped but still complete so waiters are released.
func (q *Queue) submit(cb *commandBuffer) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		slog.Debug("command buffer dropped after queue close", "passes", len(cb.passes))
		cb.complete()
		return
	}
	q.pending <- cb
	q.mu.Unlock()
}

// Close stops accepting work, drains committed buffers and stops the executor.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.pending)
	q.mu.Unlock()

	q.wg.Wait()
}

// run executes command buffers until the queue is closed.
func (q *Queue) run() {
	defer q.wg.Done()

	for cb := range q.pending {
		q.tracer.StartTick()
		for _, p := range cb.passes {
			q.tracer.StartPhase(p.label)
			p.run()
		}
		q.tracer.EndTick()

		for _, d := range cb.drawables {
			d.Present()
		}
		cb.complete()
	}
}
