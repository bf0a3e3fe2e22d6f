package migrate

import (
	"database/sql"

	"github.com/lamnguyendev/keymart-backend/pkg/logger"
)

// MaybeRunDev applies migrations on startup in dev environments so a fresh
// checkout boots without a separate migrate step. Production deploys run
// cmd/migrate explicitly.
func MaybeRunDev(db *sql.DB, isDev bool, log *logger.Logger) error {
	if !isDev {
		return nil
	}
	log.Info("dev environment, applying migrations on startup")
	return Up(db)
}
