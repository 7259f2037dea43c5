package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// StateStore persists the little client state that survives restarts:
// selected line ids, the cached profile and the sidebar flag. Cart contents
// are never stored here.
type StateStore interface {
	SaveSelection(ctx context.Context, cartKey string, lineIDs []string) error
	LoadSelection(ctx context.Context, cartKey string) ([]string, error)
	SaveProfile(ctx context.Context, cartKey string, profile domain.Profile) error
	LoadProfile(ctx context.Context, cartKey string) (*domain.Profile, error)
	SetSidebarOpen(ctx context.Context, cartKey string, open bool) error
	SidebarOpen(ctx context.Context, cartKey string) (bool, error)
	Delete(ctx context.Context, cartKey string) error
}

var ErrCacheMiss = errors.New("cache miss")
