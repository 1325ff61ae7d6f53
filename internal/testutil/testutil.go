// Package testutil builds an in-memory database with the standard scenario:
// the Hatherleigh and Okehampton areas, a member of staff and two ordinary users.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ilivehere/backend/internal/database"
	"github.com/ilivehere/backend/internal/models"
)

type Scenario struct {
	DB          *gorm.DB
	Hatherleigh *models.Area
	Okehampton  *models.Area
	Staff       *models.User
	Web         *models.User
	Contractor  *models.User
}

// Now is the fixed time handed to services under test.
var Now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func Clock() time.Time {
	return Now
}

func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to an in-memory file is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedModerateStates(db))
	return db
}

func NewScenario(t *testing.T) *Scenario {
	t.Helper()
	db := OpenDB(t)
	require.NoError(t, database.SeedAreas(db, []database.AreaSeed{
		{Name: "Hatherleigh", Slug: "hatherleigh"},
		{Name: "Okehampton", Slug: "okehampton"},
	}))

	s := &Scenario{DB: db}
	s.Hatherleigh = Area(t, db, "hatherleigh")
	s.Okehampton = Area(t, db, "okehampton")
	s.Staff = CreateUser(t, db, "staff", true, true)
	s.Web = CreateUser(t, db, "web", false, true)
	s.Contractor = CreateUser(t, db, "contractor", false, true)
	return s
}

func Area(t *testing.T, db *gorm.DB, slug string) *models.Area {
	t.Helper()
	var area models.Area
	require.NoError(t, db.Where("slug = ?", slug).First(&area).Error)
	return &area
}

func CreateUser(t *testing.T, db *gorm.DB, username string, staff, active bool) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@pkimber.net",
		Password: "not-a-hash",
		IsStaff:  staff,
		IsActive: active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
