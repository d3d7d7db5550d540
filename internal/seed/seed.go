package seed

import (
	"context"
	"fmt"

	"github.com/slotter-org/chat-backend/internal/logger"
	"github.com/slotter-org/chat-backend/internal/services"
)

// SeedAll makes sure the rows the API relies on exist before the first request.
func SeedAll(ctx context.Context, log *logger.Logger, identityResolver services.IdentityResolver) error {
	seedLog := log.With("component", "Seed")
	seedLog.Info("Running SeedAll... seeding guest account")

	guest, err := identityResolver.ResolveOrCreateGuest(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed guest account: %w", err)
	}

	seedLog.Info("SeedAll Complete!", "guestUserID", guest.ID)
	return nil
}
