// Package notify fans push notifications out to a user's registered
// mobile devices when their ledger changes. Delivery is best effort:
// failures are logged and never reach the request that triggered the
// fan-out.
package notify

import (
	"context"
	"time"

	"github.com/rongwang/expenses-server/internal/models"
	"github.com/rongwang/expenses-server/internal/utils"
)

// CollapseKey groups outstanding notifications on the device so only
// the latest "your expenses changed" message is shown.
const CollapseKey = "expenses_update"

// Sender delivers a single push message to a device registration.
type Sender interface {
	Send(ctx context.Context, registrationID, collapseKey string) error
}

// MobileStore provides the device registrations for the fan-out and
// records how many notifications each device has been sent.
type MobileStore interface {
	ListMobiles(ctx context.Context, username string) ([]models.Mobile, error)
	IncrementNotifications(ctx context.Context, mobileID string) error
}

// Notifier fans notifications out to all of a user's mobiles.
type Notifier struct {
	store   MobileStore
	sender  Sender
	logger  *utils.Logger
	timeout time.Duration
}

// NewNotifier creates a new Notifier. timeout bounds one whole fan-out.
func NewNotifier(store MobileStore, sender Sender, logger *utils.Logger, timeout time.Duration) *Notifier {
	return &Notifier{
		store:   store,
		sender:  sender,
		logger:  logger.Named("notify"),
		timeout: timeout,
	}
}

// NotifyUserMobiles sends a push message to every mobile registered for
// username except the one identified by excludedRegistrationID (the
// device that reported the change; empty means notify all). Each
// delivered message bumps the device's notification counter.
func (n *Notifier) NotifyUserMobiles(username, excludedRegistrationID string) {
	// Detached from the triggering request: the fan-out must survive
	// the response being written, but not run unbounded.
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	mobiles, err := n.store.ListMobiles(ctx, username)
	if err != nil {
		n.logger.Error("listing mobiles for %q failed: %v", username, err)
		return
	}

	for _, mobile := range mobiles {
		if mobile.RegistrationID == excludedRegistrationID {
			continue
		}

		if err := n.sender.Send(ctx, mobile.RegistrationID, CollapseKey); err != nil {
			n.logger.Error("push to mobile %s failed: %v", mobile.ID, err)
			continue
		}

		if err := n.store.IncrementNotifications(ctx, mobile.ID); err != nil {
			n.logger.Error("counting notification for mobile %s failed: %v", mobile.ID, err)
		}
	}
}
