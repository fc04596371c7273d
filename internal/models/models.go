package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the system. Users are provisioned
// out-of-band with the expensesctl tool; the API never creates,
// updates or deletes them.
type User struct {
	Username  string    `db:"username" json:"username"`
	Password  string    `db:"password" json:"-"` // bcrypt hash, not returned in JSON
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// AuthToken represents an issued authorization token. A user may hold
// any number of tokens at once (one per logged-in device); tokens do
// not expire.
type AuthToken struct {
	Username  string    `db:"username" json:"username"`
	Token     string    `db:"token" json:"authToken"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Transaction represents a single expense entry: amount moves from the
// source account to the destination account within one user's ledger.
type Transaction struct {
	ID          string          `db:"id" json:"id"`
	Username    string          `db:"username" json:"username"`
	Source      string          `db:"source" json:"source"`
	Destination string          `db:"destination" json:"destination"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Timestamp   time.Time       `db:"timestamp" json:"timestamp"`
	Notes       string          `db:"notes" json:"notes"`
}

// Mobile represents a registered mobile device that receives push
// notifications when the user's expenses change.
type Mobile struct {
	ID             string    `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	RegistrationID string    `db:"registration_id" json:"registrationId"`
	Name           string    `db:"name" json:"mobile"`
	LastSeen       time.Time `db:"last_seen" json:"lastSeen"`
	Notifications  int64     `db:"notifications" json:"notifications"`
}
