package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/accessstore"
	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/database"
	"github.com/streamhub/corehub/internal/eventstore"
	"github.com/streamhub/corehub/internal/platformregistry"
	"github.com/streamhub/corehub/internal/systemstreams"
)

// Register runs the full user-creation pipeline (parameter validation,
// local and platform registration, system-stream provisioning, personal
// access issuance, welcome mail) and returns the created user id and
// personal access.
func Register(ctx context.Context, deps *Dependencies, params Params) (*State, error) {
	st := &State{Deps: deps, Params: params}

	err := Run(ctx, st,
		ValidateParams,
		PrepareUser,
		RegisterValidate,
		PreCleanOrphan,
		CreateUserLocally,
		RegisterCreate,
		RegisterUpdate,
		SendWelcomeMail,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ValidateParams is step 1: shape-check the username, password, and any
// required account fields the catalogue demands.
func ValidateParams(ctx context.Context, st *State) (func(context.Context) error, error) {
	if st.Params.Username == "" {
		return nil, apierror.New(apierror.InvalidParametersFormat, "username is required")
	}
	if st.Params.Password == "" {
		return nil, apierror.New(apierror.InvalidParametersFormat, "password is required")
	}

	for _, id := range st.Deps.Catalogue.AccountRootIDsRequiringRead() {
		unprefixed := systemstreams.Unprefix(id)
		if unprefixed == "username" || unprefixed == "passwordHash" {
			continue
		}
		if _, ok := st.Params.Fields[unprefixed]; !ok {
			return nil, apierror.New(apierror.InvalidParametersFormat, fmt.Sprintf("field %q is required at registration", unprefixed))
		}
	}

	return nil, nil
}

// PrepareUser is step 2: seed defaults for fields the caller left empty.
func PrepareUser(ctx context.Context, st *State) (func(context.Context) error, error) {
	if st.Params.Fields == nil {
		st.Params.Fields = map[string]string{}
	}
	if _, ok := st.Params.Fields["language"]; !ok {
		st.Params.Fields["language"] = "en"
	}
	if st.Params.InvitationToken == "" {
		st.Params.InvitationToken = "no-token"
	}

	st.UniqueFields = map[string]string{"username": st.Params.Username}
	for _, id := range st.Deps.Catalogue.UniqueIDs() {
		if id == "username" {
			continue
		}
		if v, ok := st.Params.Fields[id]; ok {
			st.UniqueFields[id] = v
		}
	}

	return nil, nil
}

// RegisterValidate is step 3: pre-check with the service-register, skipped
// entirely in DNS-less mode.
func RegisterValidate(ctx context.Context, st *State) (func(context.Context) error, error) {
	if st.Deps.PlatformCfg.DNSLess() {
		return nil, nil
	}

	result, err := st.Deps.Registry.ValidateUser(ctx, platformregistry.ValidateUserRequest{
		Username:        st.Params.Username,
		InvitationToken: st.Params.InvitationToken,
		UniqueFields:    st.UniqueFields,
		Core:            st.Params.Core,
	})
	if err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, apierror.New(apierror.ItemAlreadyExists, "register rejected this username")
	}
	return nil, nil
}

// PreCleanOrphan is step 4: if a user by this username exists locally but
// the register has no record of it (a prior create that crashed between
// local commit and register confirmation), remove the register-side shadow
// before re-registering.
func PreCleanOrphan(ctx context.Context, st *State) (func(context.Context) error, error) {
	if st.Deps.PlatformCfg.DNSLess() {
		return nil, nil
	}

	_, err := st.Deps.UsersIndex.GetUserID(ctx, st.Params.Username)
	if apierror.Is(err, apierror.UnknownResource) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := st.Deps.Registry.DeleteUser(ctx, st.Params.Username, true); err != nil {
		log.Warn().Err(err).Str("username", st.Params.Username).Msg("pre-clean orphan delete failed, continuing")
	}
	return nil, nil
}

// CreateUserLocally is step 5: insert the username, seed one event per
// account stream, store the password hash, mint a personal access, and open
// a session. These writes are separate, not one transaction; the rollback
// it returns removes only the users-index row, leaving any events, password
// hash or access already written in place.
func CreateUserLocally(ctx context.Context, st *State) (func(context.Context) error, error) {
	userID, err := st.Deps.UsersIndex.AddUser(ctx, st.Params.Username)
	if err != nil {
		return nil, err
	}
	st.UserID = userID

	rollback := func(ctx context.Context) error {
		return st.Deps.UsersIndex.DeleteByID(ctx, userID)
	}

	db, err := st.Deps.Mall.Get(ctx, userID)
	if err != nil {
		return rollback, fmt.Errorf("opening event database: %w", err)
	}
	st.EventStore = eventstore.NewStore(db)
	st.AccessStore = accessstore.New(db)

	now := nowUnix()

	if err := seedAccountEvents(ctx, st, now); err != nil {
		return rollback, err
	}

	if err := st.Deps.AccountStore.SetInitialPassword(ctx, userID, st.Params.Password); err != nil {
		return rollback, fmt.Errorf("storing password: %w", err)
	}

	access, err := createPersonalAccess(ctx, st, now)
	if err != nil {
		return rollback, err
	}
	st.PersonalAccess = access

	if err := st.AccessStore.EnsureSession(ctx, access.ID, now); err != nil {
		return rollback, fmt.Errorf("opening session: %w", err)
	}

	return rollback, nil
}

func seedAccountEvents(ctx context.Context, st *State, now float64) error {
	values := map[string]string{"username": st.Params.Username}
	for k, v := range st.Params.Fields {
		values[k] = v
	}
	values["invitationToken"] = st.Params.InvitationToken
	if st.Params.AppID != "" {
		values["appId"] = st.Params.AppID
	}

	for id, stream := range st.Deps.Catalogue.AccountMap() {
		unprefixed := systemstreams.Unprefix(id)
		value, ok := values[unprefixed]
		if !ok {
			if stream.Default == nil {
				continue
			}
			value = fmt.Sprintf("%v", stream.Default)
		}

		streamIDs := []string{id}
		if stream.IsUnique {
			streamIDs = append(streamIDs, systemstreams.MarkerActive, systemstreams.MarkerUnique)
		} else if stream.IsIndexed {
			streamIDs = append(streamIDs, systemstreams.MarkerActive)
		}

		ev := &eventstore.Event{
			StreamIDs:  streamIDs,
			Type:       stream.Type,
			Content:    value,
			Time:       now,
			Created:    now,
			CreatedBy:  "system",
			Modified:   now,
			ModifiedBy: "system",
		}
		if err := st.EventStore.Create(ctx, ev); err != nil {
			return fmt.Errorf("seeding account stream %q: %w", id, err)
		}
	}
	return nil
}

func createPersonalAccess(ctx context.Context, st *State, now float64) (*accesslogic.Access, error) {
	access := &accesslogic.Access{
		ID:        database.GenerateShortID(),
		Token:     uuid.New().String(),
		Type:      accesslogic.Personal,
		Name:      "personal",
		CreatedBy: "system",
		Permissions: []accesslogic.Permission{
			{Kind: accesslogic.StreamPermission, StreamID: "*", Level: accesslogic.LevelManage},
		},
	}

	if err := st.AccessStore.Create(ctx, access, now); err != nil {
		return nil, fmt.Errorf("creating personal access: %w", err)
	}
	return access, nil
}

// RegisterCreate is step 6: push the new user to the register. On a
// uniqueness failure the local user is rolled back.
func RegisterCreate(ctx context.Context, st *State) (func(context.Context) error, error) {
	if st.Deps.PlatformCfg.DNSLess() {
		return nil, nil
	}

	fields := map[string][]platformregistry.FieldUpdate{}
	for id := range st.UniqueFields {
		fields[id] = []platformregistry.FieldUpdate{{Value: st.UniqueFields[id], IsUnique: true, IsActive: true, Creation: true}}
	}

	err := st.Deps.Registry.CreateUser(ctx, platformregistry.CreateUserPayload{
		Username: st.Params.Username,
		Fields:   fields,
	})
	if err != nil {
		if apierror.Is(err, apierror.ItemAlreadyExists) {
			rollbackLocalUser(ctx, st)
		}
		return nil, err
	}
	return nil, nil
}

// RegisterUpdate is step 7: push every indexed field with creation:true.
func RegisterUpdate(ctx context.Context, st *State) (func(context.Context) error, error) {
	if st.Deps.PlatformCfg.DNSLess() {
		return nil, nil
	}

	fields := map[string][]platformregistry.FieldUpdate{}
	for _, id := range st.Deps.Catalogue.IndexedIDs() {
		value, ok := st.Params.Fields[id]
		if !ok && id == "username" {
			value = st.Params.Username
			ok = true
		}
		if !ok {
			continue
		}
		_, isUnique := st.UniqueFields[id]
		fields[id] = []platformregistry.FieldUpdate{{Value: value, IsUnique: isUnique, IsActive: true, Creation: true}}
	}

	if err := st.Deps.Registry.UpdateUser(ctx, platformregistry.UpdateUserRequest{Username: st.Params.Username, Fields: fields}); err != nil {
		return nil, err
	}
	return nil, nil
}

// SendWelcomeMail is step 8: best-effort, errors logged not surfaced, since
// a mail delivery failure must never fail a registration that otherwise
// succeeded.
func SendWelcomeMail(ctx context.Context, st *State) (func(context.Context) error, error) {
	if st.Deps.Mailer == nil {
		return nil, nil
	}
	if err := st.Deps.Mailer.SendWelcome(ctx, st.Params.Username); err != nil {
		log.Error().Err(err).Str("username", st.Params.Username).Msg("welcome mail failed")
	}
	return nil, nil
}

func rollbackLocalUser(ctx context.Context, st *State) {
	if st.UserID == "" {
		return
	}
	if err := st.Deps.Mall.Delete(st.UserID); err != nil {
		log.Error().Err(err).Str("user_id", st.UserID).Msg("rolling back events for rejected registration")
	}
	if err := st.Deps.UsersIndex.DeleteByID(ctx, st.UserID); err != nil {
		log.Error().Err(err).Str("user_id", st.UserID).Msg("rolling back user index for rejected registration")
	}
}

func nowUnix() float64 {
	return float64(time.Now().Unix())
}
