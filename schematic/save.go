package schematic

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/astei/blockschem/worker"
)

// Executor runs tasks away from the caller's goroutine. *worker.Pool satisfies
// it.
type Executor interface {
	Submit(task func()) error
}

type primaryKey struct{}

type primaryContext struct {
	exec Executor
}

// WithPrimary marks ctx as belonging to the host's primary execution context,
// the one that must never wait on I/O. Saves issued with the returned context
// are handed to exec; a nil exec selects worker.Default().
func WithPrimary(ctx context.Context, exec Executor) context.Context {
	return context.WithValue(ctx, primaryKey{}, primaryContext{exec: exec})
}

func IsPrimary(ctx context.Context) bool {
	_, ok := ctx.Value(primaryKey{}).(primaryContext)
	return ok
}

// Save writes the schematic to w with loader and closes w. A nil loader selects
// DefaultLoader.
//
// On a primary context (see WithPrimary) the whole save is submitted to that
// context's executor and Save returns as soon as it is queued. Errors from such
// a deferred save are only logged; the caller never sees them. Otherwise Save
// runs on the calling goroutine and returns once w has been closed. Errors
// from closing w are ignored in both cases.
//
// The schematic must not be modified until the save has finished.
func (s *Schematic) Save(ctx context.Context, w io.WriteCloser, loader Loader) error {
	if loader == nil {
		loader = DefaultLoader
	}

	if primary, ok := ctx.Value(primaryKey{}).(primaryContext); ok {
		exec := primary.exec
		if exec == nil {
			exec = worker.Default()
		}
		err := exec.Submit(func() {
			if err := s.saveNow(w, loader); err != nil {
				slog.Error("deferred schematic save failed", "blocks", s.Len(), "error", err)
			}
		})
		if err != nil {
			_ = w.Close()
			return fmt.Errorf("could not schedule save: %w", err)
		}
		return nil
	}

	return s.saveNow(w, loader)
}

func (s *Schematic) saveNow(w io.WriteCloser, loader Loader) error {
	defer func() { _ = w.Close() }()
	return loader.Save(s, w)
}

// Load reads a schematic from r with loader and closes r whether or not the
// read succeeded. A nil loader selects DefaultLoader.
func Load(r io.ReadCloser, loader Loader) (*Schematic, error) {
	defer func() { _ = r.Close() }()
	if loader == nil {
		loader = DefaultLoader
	}
	return loader.Load(r)
}
