package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/database"
)

type permissionBody struct {
	StreamID string `json:"streamId"`
	Level    string `json:"level"`
}

type accessBody struct {
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Permissions []permissionBody `json:"permissions"`
	SelfRevoke  string           `json:"selfRevoke"`
}

func parseLevel(s string) (accesslogic.Level, error) {
	switch s {
	case "read":
		return accesslogic.LevelRead, nil
	case "contribute":
		return accesslogic.LevelContribute, nil
	case "create-only":
		return accesslogic.LevelCreateOnly, nil
	case "manage":
		return accesslogic.LevelManage, nil
	default:
		return accesslogic.Level{}, apierror.New(apierror.InvalidParametersFormat, "unknown permission level "+s)
	}
}

// createAccess implements POST /:username/accesses: mints a new access
// whose permissions may never exceed the creating access's own.
func (h *handlers) createAccess(w http.ResponseWriter, r *http.Request) {
	mc, err := h.authenticate(r, h.loaderFor())
	if err != nil {
		WriteError(w, err)
		return
	}

	var body accessBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apierror.Wrap(apierror.InvalidParametersFormat, "decoding request body", err))
		return
	}
	if body.Name == "" {
		WriteError(w, apierror.New(apierror.InvalidParametersFormat, "name is required"))
		return
	}
	accessType := accesslogic.AccessType(body.Type)
	if accessType == "" {
		accessType = accesslogic.App
	}

	permissions := make([]accesslogic.Permission, 0, len(body.Permissions))
	for _, p := range body.Permissions {
		level, err := parseLevel(p.Level)
		if err != nil {
			WriteError(w, err)
			return
		}
		permissions = append(permissions, accesslogic.Permission{
			Kind:     accesslogic.StreamPermission,
			StoreID:  localStore,
			StreamID: p.StreamID,
			Level:    level,
		})
	}

	if err := accesslogic.CanCreateAccess(mc.AccessLogic, accesslogic.CreateAccessRequest{
		Permissions: permissions,
		SelfRevoke:  body.SelfRevoke,
	}); err != nil {
		WriteError(w, err)
		return
	}

	_, accesses, err := h.userDBs(r, mc.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	access := &accesslogic.Access{
		ID:          database.GenerateShortID(),
		Token:       uuid.New().String(),
		Type:        accessType,
		Name:        body.Name,
		Permissions: permissions,
		CreatedBy:   mc.Access.ID,
	}

	if err := accesses.Create(r.Context(), access, nowUnix()); err != nil {
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]any{"access": access})
}

// listAccesses implements GET /:username/accesses. A personal access sees
// every access; anything else only sees itself, matching the visibility
// rules CanDeleteAccess already encodes for deletion authority.
func (h *handlers) listAccesses(w http.ResponseWriter, r *http.Request) {
	mc, err := h.authenticate(r, h.loaderFor())
	if err != nil {
		WriteError(w, err)
		return
	}

	_, accesses, err := h.userDBs(r, mc.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	all, err := accesses.List(r.Context())
	if err != nil {
		WriteError(w, apierror.Unexpected("listing accesses", err))
		return
	}

	if mc.Access.IsPersonal() {
		JSON(w, http.StatusOK, map[string]any{"accesses": all})
		return
	}

	visible := make([]*accesslogic.Access, 0, 1)
	for _, a := range all {
		if a.ID == mc.Access.ID {
			visible = append(visible, a)
		}
	}
	JSON(w, http.StatusOK, map[string]any{"accesses": visible})
}

// deleteAccess implements DELETE /:username/accesses/{id}.
func (h *handlers) deleteAccess(w http.ResponseWriter, r *http.Request) {
	mc, err := h.authenticate(r, h.loaderFor())
	if err != nil {
		WriteError(w, err)
		return
	}

	_, accesses, err := h.userDBs(r, mc.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	target, err := accesses.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := accesslogic.CanDeleteAccess(mc.AccessLogic, target); err != nil {
		WriteError(w, err)
		return
	}

	if err := accesses.Delete(r.Context(), target.ID, nowUnix()); err != nil {
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{"accessDeletion": map[string]string{"id": target.ID}})
}
