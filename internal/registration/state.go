package registration

import (
	"context"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/accessstore"
	"github.com/streamhub/corehub/internal/accountstorage"
	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/eventstore"
	"github.com/streamhub/corehub/internal/platformregistry"
	"github.com/streamhub/corehub/internal/systemstreams"
	"github.com/streamhub/corehub/internal/usersindex"
)

// Params is the body of an auth.register call.
type Params struct {
	Username        string
	Password        string
	InvitationToken string
	AppID           string
	Core            string
	// Fields carries every other account-stream value the operator's
	// catalogue defines (e.g. "email", "referer"), keyed by the
	// unprefixed system-stream id.
	Fields map[string]string
}

// Mailer sends the post-registration welcome mail. Mail delivery itself is
// out of scope; the default NoopMailer only logs, keeping SendWelcomeMail a
// real, exercised pipeline stage without requiring an SMTP integration.
type Mailer interface {
	SendWelcome(ctx context.Context, username string) error
}

// Dependencies wires the pipeline to the rest of the module. Registry is
// nil in DNS-less mode (cfg.Platform.DNSLess()); stages that would consult
// it skip themselves instead.
type Dependencies struct {
	Catalogue    *systemstreams.Catalogue
	UsersIndex   *usersindex.Index
	AccountStore *accountstorage.Store
	Mall         *eventstore.Mall
	Registry     platformregistry.PlatformRegistryPort
	Mailer       Mailer
	PlatformCfg  config.PlatformConfig
	AccessCfg    config.AccessConfig
}

// State threads data between stages of the registration pipeline.
type State struct {
	Deps   *Dependencies
	Params Params

	UserID       string
	EventStore   *eventstore.Store
	AccessStore  *accessstore.Store
	PersonalAccess *accesslogic.Access

	UniqueFields map[string]string
}
