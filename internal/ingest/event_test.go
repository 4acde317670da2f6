package ingest_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpulse/internal/centers"
	"vetpulse/internal/ingest"
	"vetpulse/internal/testsupport"
)

func orderEvent(code, apiKey string, at time.Time) *ingest.Event {
	return &ingest.Event{
		CenterCode: code,
		APIKey:     apiKey,
		Type:       ingest.EventOrderCreated,
		Timestamp:  at,
	}
}

func TestApplyEventAutoRegistersUnknownCenter(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	center, err := ingest.ApplyEvent(dbManager, logger, orderEvent("NEWVET", "chosen-key", time.Now().UTC()))
	require.NoError(t, err)

	// The code doubles as the name until metadata arrives.
	assert.Equal(t, "NEWVET", center.Code)
	assert.Equal(t, "NEWVET", center.Name)
	assert.Equal(t, centers.DefaultCountry, center.Country)
	assert.True(t, center.Active)

	// The chosen credential works on subsequent submissions.
	_, err = centers.Authenticate(db, "NEWVET", "chosen-key", true)
	require.NoError(t, err)
	_, err = centers.Authenticate(db, "NEWVET", "other-key", true)
	var unauthorized *centers.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)
}

func TestApplyEventRejectsBadKeyForKnownCenter(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	testsupport.CreateTestCenter(t, dbManager.GetConnection(), "HVC", "secret")

	_, err := ingest.ApplyEvent(dbManager, logger, orderEvent("HVC", "wrong", time.Now().UTC()))

	var unauthorized *centers.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
}

func TestApplyEventAcceptsInactiveCenter(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")
	require.NoError(t, db.Model(center).Update("active", false).Error)

	// Events keep flowing while an operator investigates; only snapshots
	// require the active flag.
	_, err := ingest.ApplyEvent(dbManager, logger, orderEvent("HVC", "secret", time.Now().UTC()))
	require.NoError(t, err)
}

func TestApplyEventRejectsUnknownType(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	event := orderEvent("HVC", "secret", time.Now().UTC())
	event.Type = "invoice_created"
	_, err := ingest.ApplyEvent(dbManager, logger, event)
	require.Error(t, err)
}

func TestApplyEventIncrementsSnapshotBaseline(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")

	date := testsupport.DaysAgo(0)
	snap := baseSnapshot("HVC", "secret", date)
	_, err := ingest.ApplySnapshot(dbManager, logger, snap)
	require.NoError(t, err)

	event := orderEvent("HVC", "secret", date.Add(15*time.Hour))
	event.Payload = ingest.EventPayload{Tests: []string{"GLU"}}
	_, err = ingest.ApplyEvent(dbManager, logger, event)
	require.NoError(t, err)

	var daily ingest.DailyMetric
	require.NoError(t, db.Where("center_id = ? AND date = ?", center.ID, date).First(&daily).Error)
	assert.Equal(t, 51, daily.TotalOrders)

	var glu ingest.TestSummary
	require.NoError(t, db.Where("center_id = ? AND date = ? AND test_code = ?", center.ID, date, "GLU").First(&glu).Error)
	assert.Equal(t, 16, glu.Count)
}

func TestApplyEventLandsOnEventDate(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")

	// A late event for two days ago must not touch today's row.
	at := time.Now().UTC().AddDate(0, 0, -2)
	_, err := ingest.ApplyEvent(dbManager, logger, orderEvent("HVC", "secret", at))
	require.NoError(t, err)

	var daily ingest.DailyMetric
	require.NoError(t, db.Where("center_id = ?", center.ID).First(&daily).Error)
	assert.Equal(t, testsupport.DaysAgo(2), daily.Date.UTC())
	assert.Equal(t, 1, daily.TotalOrders)
}

func TestApplyEventSideEffectsByType(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")
	now := time.Now().UTC()

	t.Run("order event touches tests species and breed", func(t *testing.T) {
		event := orderEvent("HVC", "secret", now)
		event.Payload = ingest.EventPayload{
			Tests:   []string{"CBC", "GLU"},
			Species: "canino",
			Breed:   "labrador",
		}
		_, err := ingest.ApplyEvent(dbManager, logger, event)
		require.NoError(t, err)

		var testRows, speciesRows, breedRows int64
		db.Model(&ingest.TestSummary{}).Where("center_id = ?", center.ID).Count(&testRows)
		db.Model(&ingest.SpeciesSummary{}).Where("center_id = ?", center.ID).Count(&speciesRows)
		db.Model(&ingest.BreedSummary{}).Where("center_id = ?", center.ID).Count(&breedRows)
		assert.Equal(t, int64(2), testRows)
		assert.Equal(t, int64(1), speciesRows)
		assert.Equal(t, int64(1), breedRows)

		var species ingest.SpeciesSummary
		require.NoError(t, db.Where("center_id = ?", center.ID).First(&species).Error)
		assert.Equal(t, "Canino", species.SpeciesName)
	})

	t.Run("pet event touches species only", func(t *testing.T) {
		event := orderEvent("HVC", "secret", now)
		event.Type = ingest.EventPetCreated
		event.Payload = ingest.EventPayload{Species: "felino"}
		_, err := ingest.ApplyEvent(dbManager, logger, event)
		require.NoError(t, err)

		var daily ingest.DailyMetric
		require.NoError(t, db.Where("center_id = ?", center.ID).First(&daily).Error)
		assert.Equal(t, 1, daily.TotalPets)

		var felino ingest.SpeciesSummary
		require.NoError(t, db.Where("center_id = ? AND species_name = ?", center.ID, "Felino").First(&felino).Error)
		assert.Equal(t, 1, felino.Count)
	})

	t.Run("result and owner events touch counters only", func(t *testing.T) {
		event := orderEvent("HVC", "secret", now)
		event.Type = ingest.EventResultCreated
		_, err := ingest.ApplyEvent(dbManager, logger, event)
		require.NoError(t, err)

		event = orderEvent("HVC", "secret", now)
		event.Type = ingest.EventOwnerCreated
		_, err = ingest.ApplyEvent(dbManager, logger, event)
		require.NoError(t, err)

		var daily ingest.DailyMetric
		require.NoError(t, db.Where("center_id = ?", center.ID).First(&daily).Error)
		assert.Equal(t, 1, daily.TotalResults)
		assert.Equal(t, 1, daily.TotalOwners)
	})
}

func TestConcurrentEventsAllCount(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")

	const n = 20
	at := time.Now().UTC()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := orderEvent("HVC", "secret", at)
			event.Payload = ingest.EventPayload{Tests: []string{"CBC"}}
			if _, err := ingest.ApplyEvent(dbManager, logger, event); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var daily ingest.DailyMetric
	require.NoError(t, db.Where("center_id = ?", center.ID).First(&daily).Error)
	assert.Equal(t, n, daily.TotalOrders)

	var cbc ingest.TestSummary
	require.NoError(t, db.Where("center_id = ? AND test_code = ?", center.ID, "CBC").First(&cbc).Error)
	assert.Equal(t, n, cbc.Count)
}
