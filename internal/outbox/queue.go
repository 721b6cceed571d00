// Package outbox delivers board writes to the backing store in the
// background. Pending writes are keyed by record: a newer write replaces an
// older one that has not started, at most one write per record is in flight,
// and failed writes are retried with backoff before being dropped.
package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/jobdeck/internal/remote"
	"github.com/starford/jobdeck/internal/retry"
)

// AssignFunc receives the row a store create assigned to a record.
type AssignFunc func(id string, rowIndex int)

// Option configures a Queue.
type Option func(*Queue)

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(q *Queue) { q.policy = p }
}

// WithWorkers bounds the number of concurrent store calls.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithTimeout bounds a single store call.
func WithTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

type task struct {
	op        remote.Op
	attempts  int
	notBefore time.Time
}

// Queue implements remote.Dispatcher.
type Queue struct {
	syncer  remote.Syncer
	policy  retry.Policy
	workers int
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	pending  []*task
	inflight map[string]bool
	rows     map[string]int    // rows assigned by creates this process made
	aliases  map[string]string // superseded id -> current id
	onAssign AssignFunc
	wake     chan struct{}
}

var _ remote.Dispatcher = (*Queue)(nil)

// New creates a queue writing to s. Call Run to start delivery.
func New(s remote.Syncer, opts ...Option) *Queue {
	q := &Queue{
		syncer:   s,
		policy:   retry.DefaultPolicy(),
		workers:  4,
		timeout:  15 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
		inflight: make(map[string]bool),
		rows:     make(map[string]int),
		aliases:  make(map[string]string),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	if err := q.policy.Validate(); err != nil {
		q.logger.Warn("outbox: unusable retry policy, using default", slog.String("error", err.Error()))
		q.policy = retry.DefaultPolicy()
	}
	return q
}

// OnAssign registers the callback for rows assigned by creates.
func (q *Queue) OnAssign(fn AssignFunc) {
	q.mu.Lock()
	q.onAssign = fn
	q.mu.Unlock()
}

// Dispatch enqueues op and returns immediately.
func (q *Queue) Dispatch(op remote.Op) {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.signal()

	if op.Supersedes != "" && op.Supersedes != op.RecordID {
		q.dropLocked(op.Supersedes)
		for old, cur := range q.aliases {
			if cur == op.Supersedes {
				q.aliases[old] = op.RecordID
			}
		}
		if q.inflight[op.Supersedes] {
			q.aliases[op.Supersedes] = op.RecordID
		}
		if row, ok := q.rows[op.Supersedes]; ok {
			q.rows[op.RecordID] = row
			delete(q.rows, op.Supersedes)
		}
	}

	switch op.Kind {
	case remote.OpLocalUpsert:
		for _, t := range q.pending {
			if t.op.RecordID == op.RecordID && t.op.Kind == remote.OpUpsert {
				t.op.Record = op.Record
				return
			}
		}
		// A create already on the wire carries stale content; follow it with
		// an update once it lands.
		if q.inflightLocked(op.RecordID) {
			q.pending = append(q.pending, &task{op: remote.Op{
				Kind:     remote.OpUpsert,
				RecordID: op.RecordID,
				Record:   op.Record,
			}})
		}
		return
	case remote.OpDelete:
		q.dropLocked(op.RecordID)
	default:
		for _, t := range q.pending {
			if t.op.RecordID == op.RecordID && t.op.Kind == op.Kind {
				t.op = op
				t.attempts = 0
				t.notBefore = time.Time{}
				return
			}
		}
	}
	q.pending = append(q.pending, &task{op: op})
}

// Len returns the number of pending and in-flight writes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.inflight)
}

// HasPendingCreate reports whether a create for id is queued or on the wire
// and no row has been assigned to it yet. Writes queued under an id that id
// replaced count too.
func (q *Queue) HasPendingCreate(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.rows[id] > 0 {
		return false
	}
	for _, t := range q.pending {
		if t.op.Kind == remote.OpUpsert && t.op.RowIndex == 0 && q.resolveLocked(t.op.RecordID) == id {
			return true
		}
	}
	// Records without a row only put creates on the wire.
	return q.inflightLocked(id)
}

// Run delivers writes until ctx is cancelled, then waits for in-flight calls.
func (q *Queue) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(q.workers)

	q.logger.Info("outbox: started", slog.Int("workers", q.workers))
	for {
		ready, wait := q.takeReady()
		for _, t := range ready {
			g.Go(func() error {
				q.execute(gCtx, t)
				return nil
			})
		}

		var timer <-chan time.Time
		if wait > 0 {
			timer = time.After(wait)
		}
		select {
		case <-ctx.Done():
			err := g.Wait()
			q.logger.Info("outbox: stopped", slog.Int("pending", q.Len()))
			return err
		case <-q.wake:
		case <-timer:
		}
	}
}

// takeReady removes the first due task of every idle record from pending.
// It returns the time until the next backoff expires, or 0.
func (q *Queue) takeReady() ([]*task, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var ready []*task
	var wait time.Duration
	seen := make(map[string]bool)
	kept := q.pending[:0]

	for _, t := range q.pending {
		id := t.op.RecordID
		if seen[id] || q.inflightLocked(id) {
			kept = append(kept, t)
			continue
		}
		seen[id] = true
		if d := t.notBefore.Sub(now); d > 0 {
			if wait == 0 || d < wait {
				wait = d
			}
			kept = append(kept, t)
			continue
		}
		q.inflight[id] = true
		ready = append(ready, t)
	}
	for i := len(kept); i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = kept
	return ready, wait
}

func (q *Queue) execute(ctx context.Context, t *task) {
	id := t.op.RecordID

	q.mu.Lock()
	if t.op.RowIndex == 0 {
		t.op.RowIndex = q.rows[q.resolveLocked(id)]
	}
	op := t.op
	q.mu.Unlock()

	if op.Kind == remote.OpDelete && op.RowIndex == 0 {
		// Never reached the store; nothing to remove.
		q.finish(id)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, q.timeout)
	row, err := remote.Apply(callCtx, q.syncer, op)
	cancel()

	if err == nil {
		q.succeeded(op, row)
		return
	}

	q.logger.Warn("outbox: store write failed",
		slog.String("op", string(op.Kind)),
		slog.String("id", id),
		slog.Int("row", op.RowIndex),
		slog.Int("attempt", t.attempts+1),
		slog.String("error", err.Error()))

	q.mu.Lock()
	delete(q.inflight, id)
	t.attempts++
	switch {
	case ctx.Err() != nil:
		q.logger.Debug("outbox: dropping write on shutdown", slog.String("id", id))
	case q.aliases[id] != "" || q.hasPendingLocked(id, op.Kind):
		q.logger.Debug("outbox: failed write superseded", slog.String("id", id))
	case t.attempts > q.policy.MaxRetries:
		q.logger.Error("outbox: giving up on store write",
			slog.String("op", string(op.Kind)),
			slog.String("id", id),
			slog.Int("attempts", t.attempts))
	default:
		t.notBefore = q.now().Add(q.policy.Delay(t.attempts))
		q.pending = append([]*task{t}, q.pending...)
	}
	q.cleanAliasesLocked(id)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) succeeded(op remote.Op, row int) {
	q.mu.Lock()
	target := q.resolveLocked(op.RecordID)
	var assign AssignFunc
	switch op.Kind {
	case remote.OpUpsert:
		if row > 0 && q.rows[target] != row {
			q.rows[target] = row
			assign = q.onAssign
		}
	case remote.OpDelete:
		delete(q.rows, target)
	}
	q.mu.Unlock()

	q.logger.Debug("outbox: store write done",
		slog.String("op", string(op.Kind)),
		slog.String("id", op.RecordID),
		slog.Int("row", row))
	if assign != nil {
		assign(target, row)
	}
	q.finish(op.RecordID)
}

func (q *Queue) finish(id string) {
	q.mu.Lock()
	delete(q.inflight, id)
	q.cleanAliasesLocked(id)
	q.mu.Unlock()
	q.signal()
}

// inflightLocked reports whether id, or an id it replaced, has a write on
// the wire.
func (q *Queue) inflightLocked(id string) bool {
	if q.inflight[id] {
		return true
	}
	for old, cur := range q.aliases {
		if cur == id && q.inflight[old] {
			return true
		}
	}
	return false
}

func (q *Queue) resolveLocked(id string) string {
	if cur, ok := q.aliases[id]; ok {
		return cur
	}
	return id
}

func (q *Queue) cleanAliasesLocked(id string) {
	if _, ok := q.aliases[id]; ok && !q.inflight[id] {
		delete(q.aliases, id)
	}
}

func (q *Queue) hasPendingLocked(id string, kind remote.OpKind) bool {
	for _, t := range q.pending {
		if t.op.RecordID == id && (t.op.Kind == kind || t.op.Kind == remote.OpDelete) {
			return true
		}
	}
	return false
}

func (q *Queue) dropLocked(id string) {
	kept := q.pending[:0]
	for _, t := range q.pending {
		if t.op.RecordID != id {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = kept
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
