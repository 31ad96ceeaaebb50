// handlers.go holds the shared handler state. All endpoint handlers are
// methods on Handlers so the router wires one value instead of threading a
// dependency list through every constructor.
package api

import (
	"context"
	"log/slog"

	"github.com/modvault/modvault/internal/auth"
	"github.com/modvault/modvault/internal/cache"
	"github.com/modvault/modvault/internal/config"
	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/registry"
	"github.com/modvault/modvault/internal/search"
)

// UserDirectory is the user persistence the handlers need. Implemented by
// repositories.UserRepository.
type UserDirectory interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	Resolve(ctx context.Context, ref string) (*models.User, error)
}

// Searcher executes search queries against the index. Implemented by
// search.Client.
type Searcher interface {
	Search(ctx context.Context, q search.Query, id search.Identity) (*search.Results, error)
}

// Handlers bundles the dependencies shared across endpoint handlers.
type Handlers struct {
	registry *registry.Registry
	users    UserDirectory
	resolver *auth.Resolver
	searcher Searcher
	cache    *cache.Cache
	cfg      *config.Config
	logger   *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	reg *registry.Registry,
	users UserDirectory,
	resolver *auth.Resolver,
	searcher Searcher,
	c *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(nil, logger)
	}
	return &Handlers{
		registry: reg,
		users:    users,
		resolver: resolver,
		searcher: searcher,
		cache:    c,
		cfg:      cfg,
		logger:   logger,
	}
}

// resolveUser adapts the user directory to the lookup shape the registry's
// authorship operations take.
func (h *Handlers) resolveUser(ctx context.Context, ref string) (*models.User, error) {
	return h.users.Resolve(ctx, ref)
}
