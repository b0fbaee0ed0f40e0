package migrations

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CoreTables lists the tables owned by the intake system.
var CoreTables = []string{
	"requests",
	"quotes",
	"status_log",
	"notification_queue",
	"error_logs",
	"rate_limits",
}

// Migrate applies every pending migration. It is additive and safe to call on
// every start; a DDL failure aborts and is returned to the caller.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createRequestsTables(),
		createNotificationQueueTable(),
		createErrorLogsTable(),
		createRateLimitsTable(),
		createCatalogTables(),
		createOptionsTable(),
		createProductVehiclesTable(),
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
