// Package device provides the command queue and drawable abstractions the
// frame orchestrator encodes work into. The CPU implementation runs encoded
// passes on a dedicated goroutine so frame preparation overlaps execution the
// same way it would with a GPU command queue.
package device

import (
	"errors"
	"image"
)

var (
	// ErrNoDrawable means the surface had no free drawable this frame.
	ErrNoDrawable = errors.New("device: no drawable available")
	// ErrQueueClosed means the command queue no longer accepts work.
	ErrQueueClosed = errors.New("device: command queue closed")
)

// Drawable is an image the surface will show once presented.
type Drawable interface {
	Image() *image.RGBA
	Present()
}

// Surface supplies drawables to render into.
type Surface interface {
	NextDrawable() (Drawable, error)
}

// CommandBuffer records passes that execute in encode order after Commit.
// Completed handlers run once every pass and presentation has finished.
type CommandBuffer interface {
	Encode(label string, pass func())
	Present(d Drawable)
	AddCompletedHandler(h func())
	Commit()
}

// Device creates command buffers.
type Device interface {
	NewCommandBuffer() (CommandBuffer, error)
}

// Tracer observes command buffer execution. PerfCollector satisfies it.
type Tracer interface {
	StartTick()
	StartPhase(phase string)
	EndTick()
}

type nopTracer struct{}

func (nopTracer) StartTick()        {}
func (nopTracer) StartPhase(string) {}
func (nopTracer) EndTick()          {}
