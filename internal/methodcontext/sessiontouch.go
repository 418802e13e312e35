package methodcontext

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// touchRequest names one personal session to mark as recently used.
type touchRequest struct {
	userID   string
	accessID string
}

// Toucher persists a session touch; implementations live alongside wherever
// sessions are stored.
type Toucher interface {
	TouchSession(ctx context.Context, userID, accessID string) error
}

// SessionTouch fire-and-forgets personal-session touches onto a buffered
// channel drained by a background goroutine, so MethodContext construction
// never blocks a request on a session-bookkeeping write. Uses the standard
// Start/Stop/ctx-cancel worker-goroutine shape, logging dropped and failed
// touches via github.com/rs/zerolog.
type SessionTouch struct {
	toucher Toucher
	queue   chan touchRequest
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSessionTouch starts the background drain goroutine; queueSize bounds
// how many pending touches can be buffered before Touch silently drops one
// (a missed touch only delays session-idle eviction, never correctness).
func NewSessionTouch(toucher Toucher, queueSize int) *SessionTouch {
	if queueSize <= 0 {
		queueSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	st := &SessionTouch{
		toucher: toucher,
		queue:   make(chan touchRequest, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go st.run()
	return st
}

// Touch enqueues a session touch, dropping it if the queue is full.
func (st *SessionTouch) Touch(userID, accessID string) {
	select {
	case st.queue <- touchRequest{userID: userID, accessID: accessID}:
	default:
		log.Warn().Str("user_id", userID).Str("access_id", accessID).Msg("session touch queue full, dropping")
	}
}

func (st *SessionTouch) run() {
	defer close(st.done)

	for {
		select {
		case req := <-st.queue:
			touchCtx, cancel := context.WithTimeout(st.ctx, 5*time.Second)
			if err := st.toucher.TouchSession(touchCtx, req.userID, req.accessID); err != nil {
				log.Warn().Err(err).Str("user_id", req.userID).Str("access_id", req.accessID).Msg("touching session")
			}
			cancel()
		case <-st.ctx.Done():
			return
		}
	}
}

// Stop cancels the background goroutine and waits for it to exit. Touches
// still queued are dropped, not drained.
func (st *SessionTouch) Stop() {
	st.cancel()
	<-st.done
}
