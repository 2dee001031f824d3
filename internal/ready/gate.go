// Package ready gates request handling on the one-time, potentially slow
// initialization of the vector store (the embedding backend can take seconds
// to load its model).
package ready

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ragchat/internal/store"
)

// State is the initialization lifecycle. It only moves forward:
// Uninitialized -> Loading -> Ready or Failed.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNotStarted is returned by Store when initialization was never started.
var ErrNotStarted = errors.New("vector store initialization not started")

// Gate owns the initialization state machine and hands out the store once it
// is ready. All access is through the mutex; there are no shared flags.
type Gate struct {
	mu     sync.Mutex
	state  State
	store  *store.VectorStore
	err    error
	done   chan struct{}
	logger *zap.Logger
}

func NewGate(logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{state: StateUninitialized, done: make(chan struct{}), logger: logger}
}

// Start runs init in a background goroutine. Calling Start more than once is
// a no-op; initialization happens at most once per gate.
func (g *Gate) Start(init func() (*store.VectorStore, error)) {
	g.mu.Lock()
	if g.state != StateUninitialized {
		g.mu.Unlock()
		return
	}
	g.state = StateLoading
	g.mu.Unlock()

	g.logger.Info("vector store initialization started")
	go func() {
		st, err := init()
		g.mu.Lock()
		if err != nil {
			g.state = StateFailed
			g.err = err
			g.logger.Error("vector store initialization failed", zap.Error(err))
		} else {
			g.state = StateReady
			g.store = st
			g.logger.Info("vector store initialization complete")
		}
		g.mu.Unlock()
		close(g.done)
	}()
}

// Status reports the current state and, when failed, the initialization error.
func (g *Gate) Status() (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, g.err
}

// Store blocks until initialization completes, fails, or ctx expires, and
// returns either the ready store or a typed error. Callers never see a
// half-initialized store.
func (g *Gate) Store(ctx context.Context) (*store.VectorStore, error) {
	g.mu.Lock()
	state := g.state
	g.mu.Unlock()
	if state == StateUninitialized {
		return nil, ErrNotStarted
	}

	select {
	case <-g.done:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for vector store initialization: %w", ctx.Err())
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateFailed {
		return nil, fmt.Errorf("vector store initialization failed: %w", g.err)
	}
	return g.store, nil
}
