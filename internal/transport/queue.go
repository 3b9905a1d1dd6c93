// ABOUTME: Request/reply queue joining many adapter connections to one router loop.
// ABOUTME: Strict alternation of Receive and Send; replays and coalesces requests by request id.

package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/2389/pacman-gateway/internal/message"
	"github.com/2389/pacman-gateway/internal/replay"
)

var (
	// ErrReplyPending indicates Receive was called before the previous request was answered.
	ErrReplyPending = errors.New("reply pending for previous request")

	// ErrNoPendingRequest indicates Send was called with no request to answer.
	ErrNoPendingRequest = errors.New("no pending request")

	// ErrClosed indicates the endpoint has been closed.
	ErrClosed = errors.New("endpoint closed")
)

// Endpoint is the router's side of the channel: receive one request, send
// exactly one reply, repeat.
type Endpoint interface {
	Receive(ctx context.Context) (message.Envelope, error)
	Send(ctx context.Context, reply message.Envelope) error
}

// Exchanger is the adapter's side: submit a request and wait for its reply.
type Exchanger interface {
	Exchange(ctx context.Context, req message.Envelope) (message.Envelope, error)
}

// exchange is one request on its way through the router. reply is written
// once, before answered is closed. dropped is closed when the owner gave up
// before the router took the request.
type exchange struct {
	req      message.Envelope
	key      string
	reply    message.Envelope
	answered chan struct{}
	dropped  chan struct{}
}

func newExchange(req message.Envelope, key string) *exchange {
	return &exchange{
		req:      req,
		key:      key,
		answered: make(chan struct{}),
		dropped:  make(chan struct{}),
	}
}

// Queue implements both Endpoint and Exchanger.
type Queue struct {
	requests  chan *exchange
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	pending  *exchange
	inflight map[string]*exchange

	replay *replay.Cache
	logger *slog.Logger
}

// NewQueue creates a queue. replayCache may be nil to disable replays.
func NewQueue(replayCache *replay.Cache, logger *slog.Logger) *Queue {
	return &Queue{
		requests: make(chan *exchange),
		done:     make(chan struct{}),
		inflight: make(map[string]*exchange),
		replay:   replayCache,
		logger:   logger,
	}
}

// Exchange submits req and blocks until the router answers it, ctx ends or
// the queue is closed. A request whose id was answered recently gets the
// stored reply without reaching the router, and a retry of a request still
// in flight waits for that request's reply.
func (q *Queue) Exchange(ctx context.Context, req message.Envelope) (message.Envelope, error) {
	for {
		ex, owner := q.claim(req)
		if !owner {
			select {
			case <-ex.answered:
				return ex.reply, nil
			case <-ex.dropped:
				continue
			case <-ctx.Done():
				return message.Envelope{}, ctx.Err()
			case <-q.done:
				return message.Envelope{}, ErrClosed
			}
		}

		select {
		case q.requests <- ex:
		case <-ctx.Done():
			q.drop(ex)
			return message.Envelope{}, ctx.Err()
		case <-q.done:
			q.drop(ex)
			return message.Envelope{}, ErrClosed
		}

		select {
		case <-ex.answered:
			return ex.reply, nil
		case <-ctx.Done():
			return message.Envelope{}, ctx.Err()
		case <-q.done:
			return message.Envelope{}, ErrClosed
		}
	}
}

// claim returns the exchange that will answer req. owner is true when the
// caller must hand it to the router. A replayed or in-flight request returns
// an exchange owned by someone else.
func (q *Queue) claim(req message.Envelope) (*exchange, bool) {
	if q.replay == nil || req.RequestID == "" {
		return newExchange(req, ""), true
	}
	key := replay.Key(req.AgentID, req.RequestID)

	q.mu.Lock()
	defer q.mu.Unlock()

	if reply, ok := q.replay.Get(key); ok {
		q.logger.Debug("replaying reply",
			"agent_id", req.AgentID,
			"request_id", req.RequestID,
			"type", reply.Type,
		)
		ex := newExchange(req, key)
		ex.reply = reply
		close(ex.answered)
		return ex, false
	}

	if ex, ok := q.inflight[key]; ok {
		q.logger.Debug("joining in-flight request",
			"agent_id", req.AgentID,
			"request_id", req.RequestID,
			"type", req.Type,
		)
		return ex, false
	}

	ex := newExchange(req, key)
	q.inflight[key] = ex
	return ex, true
}

// drop releases an exchange the router never took, waking any retries
// waiting on it.
func (q *Queue) drop(ex *exchange) {
	q.mu.Lock()
	if ex.key != "" && q.inflight[ex.key] == ex {
		delete(q.inflight, ex.key)
	}
	q.mu.Unlock()
	close(ex.dropped)
}

// Receive blocks for the next request.
func (q *Queue) Receive(ctx context.Context) (message.Envelope, error) {
	q.mu.Lock()
	busy := q.pending != nil
	q.mu.Unlock()
	if busy {
		return message.Envelope{}, ErrReplyPending
	}

	select {
	case ex := <-q.requests:
		q.mu.Lock()
		q.pending = ex
		q.mu.Unlock()
		return ex.req, nil
	case <-ctx.Done():
		return message.Envelope{}, ctx.Err()
	case <-q.done:
		return message.Envelope{}, ErrClosed
	}
}

// Send answers the request returned by the last Receive. If the requester
// has gone away the reply is still stored for retries.
func (q *Queue) Send(_ context.Context, reply message.Envelope) error {
	q.mu.Lock()
	ex := q.pending
	q.pending = nil
	if ex != nil && ex.key != "" {
		q.replay.Put(ex.key, reply)
		delete(q.inflight, ex.key)
	}
	q.mu.Unlock()

	if ex == nil {
		return ErrNoPendingRequest
	}

	ex.reply = reply
	close(ex.answered)
	return nil
}

// Close wakes every blocked caller with ErrClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
