// Package httpapi implements the abridged HTTP surface: user registration,
// login, and event/access CRUD over the components built in
// internal/{systemstreams,eventstore,usersindex,accountstorage,accesslogic,
// methodcontext,platformregistry,accessstore,registration}.
package httpapi

import (
	"net/http"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/accountstorage"
	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/controldb"
	"github.com/streamhub/corehub/internal/eventstore"
	"github.com/streamhub/corehub/internal/methodcontext"
	"github.com/streamhub/corehub/internal/metrics"
	"github.com/streamhub/corehub/internal/registration"
	"github.com/streamhub/corehub/internal/systemstreams"
	"github.com/streamhub/corehub/internal/usersindex"
)

// localStore is the storeId used by single-node deployments; matches
// accesslogic's own unexported "local" constant for the default store.
const localStore = "local"

// Server wires every component dependency a handler might need. It holds
// no HTTP state of its own beyond that wiring.
type Server struct {
	Catalogue    *systemstreams.Catalogue
	UsersIndex   *usersindex.Index
	Mall         *eventstore.Mall
	AccountStore *accountstorage.Store
	ControlDB    *controldb.DB
	AccessCache  *methodcontext.AccessCache
	SessionTouch *methodcontext.SessionTouch
	AccessCfg    config.AccessConfig
	Registration *registration.Dependencies
	Version      string
}

func (s *Server) buildAccessLogic(access *accesslogic.Access) *accesslogic.AccessLogic {
	return accesslogic.BuildAccessLogic(access, s.Catalogue, nil, s.AccessCfg)
}

// NewRouter assembles the mux and middleware chain, grounded on
// internal/server/router.go's NewRouter.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()

	h := &handlers{srv: s}

	mux.HandleFunc("POST /users", h.register)
	mux.HandleFunc("POST /{username}/auth/login", h.login)
	mux.HandleFunc("POST /{username}/events", h.createEvent)
	mux.HandleFunc("GET /{username}/events", h.listEvents)
	mux.HandleFunc("GET /{username}/events/{id}", h.getEvent)
	mux.HandleFunc("PUT /{username}/events/{id}", h.updateEvent)
	mux.HandleFunc("DELETE /{username}/events/{id}", h.deleteEvent)
	mux.HandleFunc("POST /{username}/accesses", h.createAccess)
	mux.HandleFunc("GET /{username}/accesses", h.listAccesses)
	mux.HandleFunc("DELETE /{username}/accesses/{id}", h.deleteAccess)
	mux.Handle("GET /metrics", metrics.Handler())

	health := &healthHandlers{db: s.ControlDB, mall: s.Mall, version: s.Version}
	mux.HandleFunc("GET /health", health.health)
	mux.HandleFunc("GET /health/live", health.liveness)
	mux.HandleFunc("GET /health/ready", health.readiness)
	mux.HandleFunc("GET /health/stats", health.stats)

	return chain(mux, RecoveryMiddleware, RequestIDMiddleware, LoggingMiddleware)
}
