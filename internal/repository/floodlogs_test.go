package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

func setupMockFloodLogDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *FloodLogRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewFloodLogRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestAppend_Success(t *testing.T) {
	db, mock, repo := setupMockFloodLogDB(t)
	defer db.Close()

	now := time.Now()
	velocity := 3.0
	obs := &models.Observation{
		SensorID:    "S01",
		RawDistance: 140.2,
		WaterLevel:  9.8,
		Velocity:    &velocity,
		Status:      models.StatusNormal,
		CreatedAt:   now,
	}

	mock.ExpectQuery(`INSERT INTO flood_logs`).
		WithArgs("S01", 140.2, 9.8, sqlmock.AnyArg(), "normal", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.Append(context.Background(), obs)

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_NilVelocity(t *testing.T) {
	db, mock, repo := setupMockFloodLogDB(t)
	defer db.Close()

	now := time.Now()
	obs := &models.Observation{
		SensorID:    "S01",
		RawDistance: 140.2,
		WaterLevel:  9.8,
		Status:      models.StatusNormal,
		CreatedAt:   now,
	}

	mock.ExpectQuery(`INSERT INTO flood_logs`).
		WithArgs("S01", 140.2, 9.8, sql.NullFloat64{}, "normal", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(43)))

	id, err := repo.Append(context.Background(), obs)

	require.NoError(t, err)
	assert.Equal(t, int64(43), id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindNearestByTimeWindow_Found(t *testing.T) {
	db, mock, repo := setupMockFloodLogDB(t)
	defer db.Close()

	now := time.Now()
	createdAt := now.Add(-5 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "sensor_id", "raw_distance", "water_level", "velocity", "status", "created_at",
	}).AddRow(int64(40), "S01", 145.0, 10.0, nil, "warning", createdAt)

	mock.ExpectQuery(`SELECT`).
		WithArgs("S01", now.Add(-6*time.Minute), now.Add(-4*time.Minute), now.Add(-5*time.Minute)).
		WillReturnRows(rows)

	obs, err := repo.FindNearestByTimeWindow(context.Background(), "S01",
		now.Add(-6*time.Minute), now.Add(-4*time.Minute), now.Add(-5*time.Minute))

	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, 10.0, obs.WaterLevel)
	assert.Nil(t, obs.Velocity)
	assert.Equal(t, createdAt, obs.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindNearestByTimeWindow_EmptyBand(t *testing.T) {
	db, mock, repo := setupMockFloodLogDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT`).
		WillReturnError(sql.ErrNoRows)

	obs, err := repo.FindNearestByTimeWindow(context.Background(), "S01",
		now.Add(-6*time.Minute), now.Add(-4*time.Minute), now.Add(-5*time.Minute))

	require.NoError(t, err)
	assert.Nil(t, obs)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestFor_Found(t *testing.T) {
	db, mock, repo := setupMockFloodLogDB(t)
	defer db.Close()

	createdAt := time.Now()
	velocity := 1.2
	rows := sqlmock.NewRows([]string{
		"id", "sensor_id", "raw_distance", "water_level", "velocity", "status", "created_at",
	}).AddRow(int64(99), "S01", 130.0, 20.0, velocity, "warning", createdAt)

	mock.ExpectQuery(`SELECT`).
		WithArgs("S01").
		WillReturnRows(rows)

	obs, err := repo.LatestFor(context.Background(), "S01")

	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, int64(99), obs.ID)
	require.NotNil(t, obs.Velocity)
	assert.Equal(t, 1.2, *obs.Velocity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestFor_NeverReported(t *testing.T) {
	db, mock, repo := setupMockFloodLogDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("S09").
		WillReturnError(sql.ErrNoRows)

	obs, err := repo.LatestFor(context.Background(), "S09")

	require.NoError(t, err)
	assert.Nil(t, obs)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRealTimeFloodData_IncludesSilentSensors(t *testing.T) {
	db, mock, repo := setupMockFloodLogDB(t)
	defer db.Close()

	lastData := time.Now()
	observedAt := lastData.Add(-time.Minute)
	rows := sqlmock.NewRows([]string{
		"sensor_id", "location_name", "lng", "lat", "status", "last_data_time",
		"water_level", "velocity", "log_status", "observed_at",
	}).
		AddRow("S01", "District 1 underpass", 106.7, 10.77, "warning", lastData,
			25.0, 3.0, "warning", observedAt).
		AddRow("S02", "Canal bridge", 106.71, 10.78, "normal", nil,
			nil, nil, nil, nil)

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(rows)

	data, err := repo.GetRealTimeFloodData(context.Background())

	require.NoError(t, err)
	require.Len(t, data, 2)

	require.NotNil(t, data[0].WaterLevel)
	assert.Equal(t, 25.0, *data[0].WaterLevel)
	require.NotNil(t, data[0].LogStatus)
	assert.Equal(t, models.StatusWarning, *data[0].LogStatus)

	assert.Nil(t, data[1].WaterLevel)
	assert.Nil(t, data[1].Velocity)
	assert.Nil(t, data[1].LogStatus)
	assert.Nil(t, data[1].ObservedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}
