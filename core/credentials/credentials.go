package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNoCredentials reports that no usable token pair exists; the run must abort.
var ErrNoCredentials = errors.New("no credentials available")

// Tokens is the bearer/clearance pair sent with authenticated upstream calls.
type Tokens struct {
	SpartanToken   string
	ClearanceToken string
}

// Valid reports whether both tokens are present.
func (t Tokens) Valid() bool {
	return t.SpartanToken != "" && t.ClearanceToken != ""
}

// Supplier hands out a valid token pair for a user.
// Issuance and refresh of the tokens happen outside this service.
type Supplier interface {
	GetToken(ctx context.Context, userID string) (*Tokens, error)
}

// Static serves a fixed token pair, typically from configuration.
type Static struct {
	tokens Tokens
}

// NewStatic creates a static supplier.
func NewStatic(spartanToken, clearanceToken string) *Static {
	return &Static{tokens: Tokens{SpartanToken: spartanToken, ClearanceToken: clearanceToken}}
}

// GetToken returns the configured pair or ErrNoCredentials when incomplete.
func (s *Static) GetToken(ctx context.Context, userID string) (*Tokens, error) {
	if !s.tokens.Valid() {
		return nil, ErrNoCredentials
	}
	t := s.tokens
	return &t, nil
}

// OAuthToken is the row the external auth service keeps fresh per user.
type OAuthToken struct {
	UserID                string    `gorm:"column:user_id;primaryKey;size:64"`
	SpartanToken          string    `gorm:"column:spartan_token;type:text"`
	SpartanTokenExpiresAt time.Time `gorm:"column:spartan_token_expires_at"`
	ClearanceToken        string    `gorm:"column:clearance_token;type:text"`
}

// TableName overrides the table name.
func (OAuthToken) TableName() string {
	return "oauth"
}

// Database reads the token pair from the oauth table.
type Database struct {
	db *gorm.DB
	// skew rejects tokens that expire within this window.
	skew time.Duration
	now  func() time.Time
}

// NewDatabase creates a supplier backed by the oauth table.
func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db, skew: 5 * time.Minute, now: time.Now}
}

// GetToken loads the user's row. Missing rows and expired tokens yield ErrNoCredentials.
func (d *Database) GetToken(ctx context.Context, userID string) (*Tokens, error) {
	if userID == "" {
		return nil, fmt.Errorf("no credential user configured: %w", ErrNoCredentials)
	}

	var row OAuthToken
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no oauth row for user %s: %w", userID, ErrNoCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth row: %w", err)
	}

	if !row.SpartanTokenExpiresAt.IsZero() && row.SpartanTokenExpiresAt.Before(d.now().Add(d.skew)) {
		return nil, fmt.Errorf("spartan token for user %s expired at %s: %w", userID, row.SpartanTokenExpiresAt.Format(time.RFC3339), ErrNoCredentials)
	}

	tokens := &Tokens{SpartanToken: row.SpartanToken, ClearanceToken: row.ClearanceToken}
	if !tokens.Valid() {
		return nil, fmt.Errorf("incomplete tokens for user %s: %w", userID, ErrNoCredentials)
	}
	return tokens, nil
}
