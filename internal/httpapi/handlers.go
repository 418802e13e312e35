package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/accessstore"
	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/eventstore"
	"github.com/streamhub/corehub/internal/methodcontext"
	"github.com/streamhub/corehub/internal/metrics"
	"github.com/streamhub/corehub/internal/registration"
	"github.com/streamhub/corehub/internal/requestctx"
)

type handlers struct {
	srv *Server
}

// authString extracts the auth envelope from one of: "Authorization:
// <token>", "Authorization: <token> <callerId>", "Authorization: Basic
// <base64(token:)>", or a "?auth=<token>" query fallback.
func authString(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Basic "); ok {
			if decoded, err := base64.StdEncoding.DecodeString(rest); err == nil {
				return strings.TrimSuffix(string(decoded), ":")
			}
		}
		return h
	}
	return r.URL.Query().Get("auth")
}

func (h *handlers) authenticate(r *http.Request, loader methodcontext.AccessLoader) (*methodcontext.MethodContext, error) {
	req := methodcontext.Request{
		Source:     "http",
		Username:   r.PathValue("username"),
		AuthString: authString(r),
		Headers:    r.Header,
		Query:      r.URL.Query(),
		TraceID:    requestctx.RequestID(r.Context()),
	}

	mc, err := methodcontext.NewMethodContext(
		r.Context(), req, h.srv.UsersIndex, loader, h.srv.AccessCache, h.srv.SessionTouch,
		h.srv.buildAccessLogic, nil,
	)
	if err != nil {
		return nil, err
	}

	metrics.RecordAccessCall(string(mc.Access.Type))
	if counter, ok := loader.(interface {
		IncrementCalls(ctx context.Context, userID, accessID string) error
	}); ok {
		if err := counter.IncrementCalls(r.Context(), mc.UserID, mc.Access.ID); err != nil {
			log.Warn().Err(err).Str("accessId", mc.Access.ID).Msg("failed to record access call")
		}
	}

	return mc, nil
}

// userDBs opens the per-user event database and the access store layered
// over it, given an already-resolved userID.
func (h *handlers) userDBs(r *http.Request, userID string) (*eventstore.Store, *accessstore.Store, error) {
	db, err := h.srv.Mall.Get(r.Context(), userID)
	if err != nil {
		return nil, nil, apierror.Unexpected("opening event database", err)
	}
	return eventstore.NewStore(db), accessstore.New(db), nil
}

// register implements POST /users: creates a new user account and returns
// its personal access token.
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username        string            `json:"username"`
		Password        string            `json:"password"`
		InvitationToken string            `json:"invitationToken"`
		AppID           string            `json:"appId"`
		Fields          map[string]string `json:"-"`
	}
	raw := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		WriteError(w, apierror.Wrap(apierror.InvalidParametersFormat, "decoding request body", err))
		return
	}

	body.Fields = map[string]string{}
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "username":
			body.Username = s
		case "password":
			body.Password = s
		case "invitationToken":
			body.InvitationToken = s
		case "appId":
			body.AppID = s
		default:
			body.Fields[k] = s
		}
	}

	st, err := registration.Register(r.Context(), h.srv.Registration, registration.Params{
		Username:        body.Username,
		Password:        body.Password,
		InvitationToken: body.InvitationToken,
		AppID:           body.AppID,
		Fields:          body.Fields,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]any{
		"username":    body.Username,
		"apiEndpoint": apiEndpoint(body.Username),
		"token":       st.PersonalAccess.Token,
	})
}

func apiEndpoint(username string) string {
	return "https://" + username + ".corehub.local/"
}

// login implements POST /:username/auth/login: verifies the password and
// opens (or refreshes) a session on the user's personal access.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		AppID    string `json:"appId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apierror.Wrap(apierror.InvalidParametersFormat, "decoding request body", err))
		return
	}

	username := r.PathValue("username")
	if username == "" {
		username = body.Username
	}

	userID, err := h.srv.UsersIndex.GetUserID(r.Context(), username)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.srv.AccountStore.Verify(r.Context(), userID, body.Password); err != nil {
		WriteError(w, apierror.Wrap(apierror.InvalidAccessToken, "invalid credentials", err))
		return
	}

	_, accesses, err := h.userDBs(r, userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	access, err := personalAccess(r, accesses)
	if err != nil {
		WriteError(w, err)
		return
	}

	now := nowUnix()
	if err := accesses.EnsureSession(r.Context(), access.ID, now); err != nil {
		WriteError(w, apierror.Unexpected("opening session", err))
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"token":       access.Token,
		"apiEndpoint": apiEndpoint(username),
	})
}

func personalAccess(r *http.Request, accesses *accessstore.Store) (*accesslogic.Access, error) {
	all, err := accesses.List(r.Context())
	if err != nil {
		return nil, apierror.Unexpected("listing accesses", err)
	}
	for _, a := range all {
		if a.IsPersonal() {
			return a, nil
		}
	}
	return nil, apierror.New(apierror.UnknownResource, "no personal access for this user")
}
