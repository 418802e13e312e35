package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/eventstore"
	"github.com/streamhub/corehub/internal/methodcontext"
)

type eventBody struct {
	ID         string   `json:"id,omitempty"`
	StreamIDs  []string `json:"streamIds"`
	Type       string   `json:"type"`
	Content    any      `json:"content,omitempty"`
	Time       *float64 `json:"time,omitempty"`
	Trashed    bool     `json:"trashed,omitempty"`
}

func (h *handlers) createEvent(w http.ResponseWriter, r *http.Request) {
	mc, err := h.authenticate(r, h.loaderFor())
	if err != nil {
		WriteError(w, err)
		return
	}

	var body eventBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apierror.Wrap(apierror.InvalidParametersFormat, "decoding request body", err))
		return
	}
	if len(body.StreamIDs) == 0 {
		WriteError(w, apierror.New(apierror.InvalidParametersFormat, "streamIds is required"))
		return
	}

	for _, id := range body.StreamIDs {
		if !mc.AccessLogic.CanCreateEventsOnStream(localStore, id) {
			WriteError(w, apierror.New(apierror.Forbidden, "access may not create events on stream "+id))
			return
		}
	}

	store, _, err := h.userDBs(r, mc.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	now := nowUnix()
	at := now
	if body.Time != nil {
		at = *body.Time
	}

	ev := &eventstore.Event{
		StreamIDs:  body.StreamIDs,
		Type:       body.Type,
		Content:    body.Content,
		Time:       at,
		Created:    now,
		CreatedBy:  trackingID(mc),
		Modified:   now,
		ModifiedBy: trackingID(mc),
	}
	if err := store.Create(r.Context(), ev); err != nil {
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]any{"event": ev})
}

func (h *handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	mc, err := h.authenticate(r, h.loaderFor())
	if err != nil {
		WriteError(w, err)
		return
	}

	store, _, err := h.userDBs(r, mc.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	it, err := store.Find(r.Context(), nil, 1000)
	if err != nil {
		WriteError(w, apierror.Unexpected("querying events", err))
		return
	}
	defer it.Close()

	var events []*eventstore.Event
	for {
		ev, ok, err := it.Next(r.Context())
		if err != nil {
			WriteError(w, apierror.Unexpected("reading events", err))
			return
		}
		if !ok {
			break
		}

		readable := false
		for _, id := range ev.StreamIDs {
			if mc.AccessLogic.CanGetEventsOnStream(localStore, id) {
				readable = true
				break
			}
		}
		if readable {
			events = append(events, ev)
		}
	}

	JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	mc, err := h.authenticate(r, h.loaderFor())
	if err != nil {
		WriteError(w, err)
		return
	}

	store, _, err := h.userDBs(r, mc.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	ev, err := findOne(r, store, r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}

	if !canReadAny(mc, ev.StreamIDs) {
		WriteError(w, apierror.New(apierror.Forbidden, "access may not read this event"))
		return
	}

	JSON(w, http.StatusOK, map[string]any{"event": ev})
}

func (h *handlers) updateEvent(w http.ResponseWriter, r *http.Request) {
	mc, err := h.authenticate(r, h.loaderFor())
	if err != nil {
		WriteError(w, err)
		return
	}

	store, _, err := h.userDBs(r, mc.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	ev, err := findOne(r, store, r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if !canUpdateAny(mc, ev.StreamIDs) {
		WriteError(w, apierror.New(apierror.Forbidden, "access may not modify this event"))
		return
	}

	var body eventBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apierror.Wrap(apierror.InvalidParametersFormat, "decoding request body", err))
		return
	}
	if len(body.StreamIDs) > 0 {
		for _, id := range body.StreamIDs {
			if !mc.AccessLogic.CanUpdateEventsOnStream(localStore, id) {
				WriteError(w, apierror.New(apierror.Forbidden, "access may not move event to stream "+id))
				return
			}
		}
		ev.StreamIDs = body.StreamIDs
	}
	if body.Type != "" {
		ev.Type = body.Type
	}
	if body.Content != nil {
		ev.Content = body.Content
	}
	ev.Modified = nowUnix()
	ev.ModifiedBy = trackingID(mc)

	if err := store.Update(r.Context(), ev); err != nil {
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{"event": ev})
}

func (h *handlers) deleteEvent(w http.ResponseWriter, r *http.Request) {
	mc, err := h.authenticate(r, h.loaderFor())
	if err != nil {
		WriteError(w, err)
		return
	}

	store, _, err := h.userDBs(r, mc.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	ev, err := findOne(r, store, r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if !canUpdateAny(mc, ev.StreamIDs) {
		WriteError(w, apierror.New(apierror.Forbidden, "access may not delete this event"))
		return
	}

	if err := store.Delete(r.Context(), ev.ID, nowUnix(), false); err != nil {
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{"eventDeletion": map[string]string{"id": ev.ID}})
}

func findOne(r *http.Request, store *eventstore.Store, id string) (*eventstore.Event, error) {
	it, err := store.Find(r.Context(), []eventstore.QueryItem{{Type: eventstore.QueryEqual, Field: "eventid", Value: id}}, 1)
	if err != nil {
		return nil, apierror.Unexpected("querying event", err)
	}
	defer it.Close()

	ev, ok, err := it.Next(r.Context())
	if err != nil {
		return nil, apierror.Unexpected("reading event", err)
	}
	if !ok {
		return nil, apierror.New(apierror.UnknownResource, "unknown event "+id)
	}
	return ev, nil
}

func canReadAny(mc *methodcontext.MethodContext, streamIDs []string) bool {
	for _, id := range streamIDs {
		if mc.AccessLogic.CanGetEventsOnStream(localStore, id) {
			return true
		}
	}
	return false
}

func canUpdateAny(mc *methodcontext.MethodContext, streamIDs []string) bool {
	for _, id := range streamIDs {
		if mc.AccessLogic.CanUpdateEventsOnStream(localStore, id) {
			return true
		}
	}
	return false
}

func trackingID(mc *methodcontext.MethodContext) string {
	if mc.CallerID != "" {
		return mc.Access.ID + " " + mc.CallerID
	}
	return mc.Access.ID
}
