package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
)

// InitializeDatabase opens folio.db and applies its schema.
// The transaction log lives here, so it uses the ledger profile.
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "folio",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize folio database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate folio database: %w", err)
	}

	log.Info().Str("path", db.Path()).Msg("Database initialized")
	return db, nil
}
