package ready

import (
	"context"
	"time"

	"ragchat/internal/domain"
)

// Retriever adapts the gate to the augmentation policy: each query waits
// (bounded) for initialization, so a store that never becomes ready shows up
// as a retrieval failure and the policy can degrade gracefully instead of
// blocking the chat turn.
type Retriever struct {
	gate    *Gate
	timeout time.Duration
}

func (g *Gate) Retriever(timeout time.Duration) *Retriever {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Retriever{gate: g, timeout: timeout}
}

func (r *Retriever) QuerySimilar(ctx context.Context, query string, k int) ([]domain.QueryResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	st, err := r.gate.Store(waitCtx)
	if err != nil {
		return nil, err
	}
	return st.QuerySimilar(ctx, query, k)
}
