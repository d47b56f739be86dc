package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repository_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.Schema()...))
	return db
}

func intPtr(v int) *int {
	return &v
}

type venueFixture struct {
	company  models.Company
	other    models.Company
	main     models.Location
	annex    models.Location
	roomA    models.Place
	roomB    models.Place
	hall     models.Place
	external models.Place
}

func seedVenues(t *testing.T, db *gorm.DB) venueFixture {
	t.Helper()

	f := venueFixture{
		company: models.Company{Name: "Acme"},
		other:   models.Company{Name: "Globex"},
	}
	require.NoError(t, db.Create(&f.company).Error)
	require.NoError(t, db.Create(&f.other).Error)

	f.main = models.Location{CompanyID: f.company.ID, Name: "Sede Central", Address: "Av. 1"}
	f.annex = models.Location{CompanyID: f.company.ID, Name: "Anexo", Address: "Av. 2"}
	foreign := models.Location{CompanyID: f.other.ID, Name: "Globex HQ"}
	require.NoError(t, db.Create(&f.main).Error)
	require.NoError(t, db.Create(&f.annex).Error)
	require.NoError(t, db.Create(&foreign).Error)

	f.roomA = models.Place{LocationID: f.main.ID, Name: "Room A", Capacity: intPtr(30)}
	f.roomB = models.Place{LocationID: f.main.ID, Name: "Room B", Capacity: intPtr(100)}
	f.hall = models.Place{LocationID: f.annex.ID, Name: "Hall"}
	f.external = models.Place{LocationID: foreign.ID, Name: "Globex Room", Capacity: intPtr(10)}
	for _, place := range []*models.Place{&f.roomA, &f.roomB, &f.hall, &f.external} {
		require.NoError(t, db.Create(place).Error)
	}
	return f
}
