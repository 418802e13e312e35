// Package methodcontext implements the lifecycle of one API call, from the
// raw request envelope through a resolved, policy-checked access.
package methodcontext

import (
	"context"
	"fmt"
	"strings"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/usersindex"
)

// Request is the call envelope MethodContext is built from.
type Request struct {
	Source     string
	Username   string
	AuthString string
	Headers    map[string][]string
	Query      map[string][]string
	TraceID    string
}

// AccessLoader resolves an access token into its persisted record and
// performs the personal-session "exists" check MethodContext needs (touches
// go through the separate Toucher port). Implementations live wherever accesses and sessions are actually
// stored; MethodContext only depends on this port, so tests can supply an
// in-memory fake rather than a real store.
type AccessLoader interface {
	LoadAccess(ctx context.Context, userID, token string) (*accesslogic.Access, error)
	SessionExists(ctx context.Context, userID, accessID string) (bool, error)
}

// CustomAuthStepFunc is the operator-supplied hook run after the built-in
// checks pass; returning an error rejects the call.
type CustomAuthStepFunc func(ctx context.Context, mc *MethodContext) error

// MethodContext is the resolved, policy-checked state of one API call.
type MethodContext struct {
	Ctx      context.Context
	Source   string
	Username string
	UserID   string
	Token    string
	CallerID string
	Headers  map[string][]string
	Query    map[string][]string
	TraceID  string

	Access      *accesslogic.Access
	AccessLogic *accesslogic.AccessLogic
}

// parseAuthString splits the "<token> <callerId>" auth envelope; callerId
// is optional.
func parseAuthString(authString string) (token, callerID string) {
	fields := strings.Fields(authString)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[1]
}

// NewMethodContext runs the full call-construction sequence: parse the
// auth string, resolve the user id, load the access (cache-first), check
// expiry, verify (and asynchronously touch) a personal session, then run
// the operator's customAuthStep.
func NewMethodContext(
	ctx context.Context,
	req Request,
	usersIndex *usersindex.Index,
	loader AccessLoader,
	cache *AccessCache,
	sessionTouch *SessionTouch,
	buildAccessLogic func(*accesslogic.Access) *accesslogic.AccessLogic,
	customAuthStep CustomAuthStepFunc,
) (*MethodContext, error) {
	token, callerID := parseAuthString(req.AuthString)
	if token == "" {
		return nil, apierror.New(apierror.InvalidAccessToken, "missing access token")
	}

	userID, err := usersIndex.GetUserID(ctx, req.Username)
	if err != nil {
		return nil, apierror.Wrap(apierror.InvalidAccessToken, "resolving user for access token", err)
	}

	mc := &MethodContext{
		Ctx:      ctx,
		Source:   req.Source,
		Username: req.Username,
		UserID:   userID,
		Token:    token,
		CallerID: callerID,
		Headers:  req.Headers,
		Query:    req.Query,
		TraceID:  req.TraceID,
	}

	cacheKey := userID + "\x00" + token

	al, cached := cache.Get(cacheKey)
	if !cached {
		access, err := loader.LoadAccess(ctx, userID, token)
		if err != nil {
			return nil, apierror.Wrap(apierror.InvalidAccessToken, "loading access", err)
		}
		al = buildAccessLogic(access)
		cache.Put(cacheKey, al)
	}

	mc.Access = al.Access()
	mc.AccessLogic = al

	if mc.Access.Expires != nil && isExpired(*mc.Access.Expires, ctx) {
		return nil, apierror.New(apierror.InvalidAccessToken, "access token expired")
	}

	if mc.Access.IsPersonal() {
		exists, err := loader.SessionExists(ctx, userID, mc.Access.ID)
		if err != nil {
			return nil, apierror.Wrap(apierror.UnexpectedError, "checking session", err)
		}
		if !exists {
			return nil, apierror.New(apierror.InvalidAccessToken, "session no longer exists")
		}
		if sessionTouch != nil {
			sessionTouch.Touch(userID, mc.Access.ID)
		}
	}

	if customAuthStep != nil {
		if err := customAuthStep(ctx, mc); err != nil {
			return nil, apierror.Wrap(apierror.InvalidAccessToken, "custom auth step rejected the call", err)
		}
	}

	return mc, nil
}

func isExpired(expiresAt float64, ctx context.Context) bool {
	return expiresAt <= nowUnix(ctx)
}

// nowUnix is a seam so tests can inject a fixed clock via context; callers
// outside tests should leave the context alone and get wall-clock time.
func nowUnix(ctx context.Context) float64 {
	if clock, ok := ctx.Value(clockKey{}).(func() float64); ok {
		return clock()
	}
	return realNowUnix()
}

type clockKey struct{}

// WithClock overrides the clock NewMethodContext uses for expiry checks,
// for deterministic tests.
func WithClock(ctx context.Context, clock func() float64) context.Context {
	return context.WithValue(ctx, clockKey{}, clock)
}

// MethodID reconstructs the dotted method id from source/namespace
// conventions handlers pass along for MethodRegistry.Check; kept here since
// it's a one-liner call sites would otherwise duplicate.
func MethodID(namespace, action string) string {
	return fmt.Sprintf("%s.%s", namespace, action)
}
