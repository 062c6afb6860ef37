package postgres

import (
	"testing"
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupTestDB(t *testing.T) *gorm.DB {
	return SetupTestDBWithClock(t, func() time.Time { return time.Now().UTC() })
}

// SetupTestDBWithClock opens an in-memory SQLite database whose autoCreateTime
// and autoUpdateTime columns are driven by now.
func SetupTestDBWithClock(t *testing.T, now func() time.Time) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent), // Disable logs during tests
		NowFunc: now,
	})
	require.NoError(t, err)

	// Every pooled connection would get its own in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = MigrateModels(db, &models.Job{})
	require.NoError(t, err)

	t.Cleanup(func() { sqlDB.Close() })
	return db
}
