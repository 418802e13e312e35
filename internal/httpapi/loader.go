package httpapi

import (
	"context"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/accessstore"
	"github.com/streamhub/corehub/internal/methodcontext"
)

// NewMallToucher builds the methodcontext.Toucher that backs a Server's
// SessionTouch, opening each user's database on demand through the same
// Mall the rest of the server uses. Exported so cmd/corehubd can wire
// SessionTouch before the rest of Server is otherwise in use.
func NewMallToucher(srv *Server) methodcontext.Toucher {
	return &mallLoader{srv: srv}
}

// mallLoader implements methodcontext.AccessLoader and methodcontext.Toucher
// by opening the addressed user's database through the Mall on each call,
// since MethodContext resolves userID internally and hands it to the
// loader rather than the caller supplying it up front.
type mallLoader struct {
	srv *Server
}

func (h *handlers) loaderFor() *mallLoader {
	return &mallLoader{srv: h.srv}
}

func (l *mallLoader) LoadAccess(ctx context.Context, userID, token string) (*accesslogic.Access, error) {
	db, err := l.srv.Mall.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return accessstore.New(db).LoadAccess(ctx, userID, token)
}

func (l *mallLoader) SessionExists(ctx context.Context, userID, accessID string) (bool, error) {
	db, err := l.srv.Mall.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return accessstore.New(db).SessionExists(ctx, userID, accessID)
}

func (l *mallLoader) TouchSession(ctx context.Context, userID, accessID string) error {
	db, err := l.srv.Mall.Get(ctx, userID)
	if err != nil {
		return err
	}
	return accessstore.New(db).TouchSession(ctx, userID, accessID)
}

func (l *mallLoader) IncrementCalls(ctx context.Context, userID, accessID string) error {
	db, err := l.srv.Mall.Get(ctx, userID)
	if err != nil {
		return err
	}
	return accessstore.New(db).IncrementCalls(ctx, accessID)
}
