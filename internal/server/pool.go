package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
)

// Opener opens and connects one store session.
type Opener func(ctx context.Context) (store.ExperimentStore, error)

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = errors.New("session pool closed")

// Pool hands out at most size store sessions at a time. Sessions are opened
// on first use and reused afterwards; a session that failed with a
// connection error is closed instead of being returned to the pool.
type Pool struct {
	open  Opener
	slots chan struct{}
	idle  chan store.ExperimentStore

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool of up to size sessions.
func NewPool(size int, open Opener) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		open:  open,
		slots: make(chan struct{}, size),
		idle:  make(chan store.ExperimentStore, size),
	}
}

// Size is the maximum number of concurrent sessions.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// Do runs fn with a session, waiting for one to free up if all are busy.
// If fn panics the session is closed and the panic continues.
func (p *Pool) Do(ctx context.Context, fn func(store.ExperimentStore) error) (err error) {
	s, err := p.acquire(ctx)
	if err != nil {
		return err
	}

	completed := false
	defer func() {
		p.release(s, !completed || errors.Is(err, util.ErrConnection))
	}()

	err = fn(s)
	completed = true
	return err
}

func (p *Pool) acquire(ctx context.Context) (store.ExperimentStore, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case s := <-p.idle:
		return s, nil
	default:
	}

	s, err := p.open(ctx)
	if err != nil {
		<-p.slots
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	util.DebugLog("Opened session %d/%d on %s", len(p.slots), p.Size(), s)
	return s, nil
}

func (p *Pool) release(s store.ExperimentStore, broken bool) {
	defer func() { <-p.slots }()

	// idle has room for every slot, so the send never blocks
	p.mu.Lock()
	keep := !broken && !p.closed
	if keep {
		p.idle <- s
	}
	p.mu.Unlock()

	if !keep {
		if err := s.Close(); err != nil {
			util.DebugLog("Failed to close session: %v", err)
		}
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close closes every idle session. Sessions still in use are closed when
// they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case s := <-p.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}
