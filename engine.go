package synckv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/synckv/internal/barrier"
	"github.com/unkn0wn-root/synckv/internal/util"
	"github.com/unkn0wn-root/synckv/store"
)

const (
	opPut    = "put"
	opDelete = "delete"
	opGet    = "get"
)

type fetchResult struct {
	value string
	ok    bool
	err   error
}

type task struct {
	op    string
	key   string
	value string
	ack   *Future          // writes
	reply chan fetchResult // reads
}

// lane is an unbounded FIFO drained by one worker. Every operation on a key
// goes through the same lane, so a key's operations reach the store in the
// order they were issued.
type lane struct {
	mu   sync.Mutex
	q    []task
	wake chan struct{}
}

func (l *lane) push(t task) {
	l.mu.Lock()
	l.q = append(l.q, t)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *lane) pop() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.q) == 0 {
		return task{}, false
	}
	t := l.q[0]
	l.q[0] = task{}
	l.q = l.q[1:]
	return t, true
}

// engine owns the store connection and every call made on it.
type engine struct {
	name      string
	store     store.Store
	log       Logger
	hooks     Hooks
	opTimeout time.Duration
	onFail    func(*BackendError) // nil unless failures are collected

	pending *barrier.Barrier

	connMu     sync.Mutex
	conn       store.Conn
	connClosed bool

	mu      sync.RWMutex // guards closed against in-flight enqueues
	closed  bool
	stop    chan struct{}
	drained chan struct{} // closed once every lane has exited
	lanes   []*lane
	wg      sync.WaitGroup
}

func newEngine(name string, st store.Store, workers int, opTimeout time.Duration, log Logger, hooks Hooks) *engine {
	e := &engine{
		name:      name,
		store:     st,
		log:       log,
		hooks:     hooks,
		opTimeout: opTimeout,
		pending:   barrier.New(func(n int) { hooks.PendingChanged(name, n) }),
		stop:      make(chan struct{}),
		drained:   make(chan struct{}),
		lanes:     make([]*lane, workers),
	}
	e.wg.Add(workers)
	for i := range e.lanes {
		l := &lane{wake: make(chan struct{}, 1)}
		e.lanes[i] = l
		go e.run(l)
	}
	return e
}

func (e *engine) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	if e.opTimeout > 0 {
		return context.WithTimeout(parent, e.opTimeout)
	}
	return context.WithCancel(parent)
}

// bootstrap opens the connection (once) and hands one consistent read of the
// store to merge.
func (e *engine) bootstrap(ctx context.Context, merge func([]store.Pair)) error {
	conn, err := e.open(ctx)
	if err != nil {
		return err
	}
	octx, cancel := e.opContext(ctx)
	defer cancel()
	pairs, err := conn.GetAll(octx)
	if err != nil {
		return &BackendError{Op: "load", Err: err}
	}
	merge(pairs)
	return nil
}

func (e *engine) open(ctx context.Context) (store.Conn, error) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != nil {
		return e.conn, nil
	}
	octx, cancel := e.opContext(ctx)
	defer cancel()
	conn, err := e.store.Open(octx, e.name)
	if err != nil {
		return nil, &BackendError{Op: "open", Err: err}
	}
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		_ = conn.Close(ctx)
		return nil, ErrClosed
	}
	e.conn = conn
	return conn, nil
}

func (e *engine) connection() store.Conn {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn == nil {
		panic(fmt.Errorf("%w: store operation issued before the connection was opened", ErrInvariant))
	}
	return e.conn
}

func (e *engine) lane(key string) *lane {
	return e.lanes[util.Shard(key, len(e.lanes))]
}

// persist queues a write. The pending counter is raised before the call
// returns and lowered exactly once when the store answers.
func (e *engine) persist(op, key, value string) *Future {
	ack := newFuture()
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		ack.resolve(ErrClosed)
		return ack
	}
	e.pending.Inc()
	e.lane(key).push(task{op: op, key: key, value: value, ack: ack})
	return ack
}

// fetch reads key from the store after every write already queued for it.
func (e *engine) fetch(ctx context.Context, key string) (string, bool, error) {
	reply := make(chan fetchResult, 1)
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return "", false, ErrClosed
	}
	e.lane(key).push(task{op: opGet, key: key, reply: reply})
	e.mu.RUnlock()

	select {
	case r := <-reply:
		return r.value, r.ok, r.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (e *engine) run(l *lane) {
	defer e.wg.Done()
	for {
		for t, ok := l.pop(); ok; t, ok = l.pop() {
			e.exec(t)
		}
		select {
		case <-l.wake:
		case <-e.stop:
			// nothing can be queued once stop is closed; finish what is left
			for t, ok := l.pop(); ok; t, ok = l.pop() {
				e.exec(t)
			}
			return
		}
	}
}

func (e *engine) exec(t task) {
	conn := e.connection()
	ctx, cancel := e.opContext(context.Background())
	defer cancel()

	if t.op == opGet {
		v, ok, err := conn.Get(ctx, t.key)
		if err != nil {
			err = &BackendError{Op: opGet, Key: t.key, Err: err}
		}
		t.reply <- fetchResult{value: v, ok: ok, err: err}
		return
	}

	defer e.pending.Done()

	start := time.Now()
	var err error
	switch t.op {
	case opPut:
		err = conn.Put(ctx, t.key, t.value)
	case opDelete:
		err = conn.Delete(ctx, t.key)
	default:
		panic(fmt.Errorf("%w: unknown store op %q", ErrInvariant, t.op))
	}
	took := time.Since(start)
	e.hooks.WriteDone(t.op, t.key, err, took)

	if err != nil {
		berr := &BackendError{Op: t.op, Key: t.key, Err: err}
		e.log.Warn("background write failed", Fields{"op": t.op, "key": t.key, "err": err})
		if e.onFail != nil {
			e.onFail(berr)
		}
		t.ack.resolve(berr)
		return
	}
	t.ack.resolve(nil)
}

// close stops accepting work, drains the lanes and closes the connection.
// A call that runs out of ctx before the lanes drain may be repeated; the
// connection is closed by the first call that sees the drain complete.
func (e *engine) close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.stop)
		go func() {
			e.wg.Wait()
			close(e.drained)
		}()
	}
	e.mu.Unlock()

	select {
	case <-e.drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn == nil || e.connClosed {
		return nil
	}
	e.connClosed = true
	return e.conn.Close(ctx)
}
