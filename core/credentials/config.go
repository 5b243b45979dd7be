package credentials

import (
	"fmt"

	"gorm.io/gorm"
)

// Config selects the credential supplier.
type Config struct {
	// Source is "static" or "database".
	Source string `mapstructure:"source" default:"database"`
	// UserID is the account whose tokens authenticate sync runs.
	UserID string `mapstructure:"user_id" default:""`
	// SpartanToken is used by the static source.
	SpartanToken string `mapstructure:"spartan_token" default:""`
	// ClearanceToken is used by the static source.
	ClearanceToken string `mapstructure:"clearance_token" default:""`
}

// NewSupplier builds the configured supplier.
func NewSupplier(cfg Config, db *gorm.DB) (Supplier, error) {
	switch cfg.Source {
	case "static":
		return NewStatic(cfg.SpartanToken, cfg.ClearanceToken), nil
	case "database", "":
		if db == nil {
			return nil, fmt.Errorf("database credential source requires a database connection")
		}
		return NewDatabase(db), nil
	default:
		return nil, fmt.Errorf("unknown credential source: %s", cfg.Source)
	}
}
