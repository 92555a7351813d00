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

func setupMockSensorDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SensorRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewSensorRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestGetSensorProfile_Success(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	lastData := time.Now()
	rows := sqlmock.NewRows([]string{
		"sensor_id", "location_name", "lng", "lat", "installation_height",
		"warning_threshold", "danger_threshold", "is_active", "status", "last_data_time",
	}).AddRow(
		"S01", "District 1 underpass", 106.7, 10.77, 150.0,
		10.0, 30.0, true, "normal", lastData,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("S01").
		WillReturnRows(rows)

	profile, err := repo.GetSensorProfile(context.Background(), "S01")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "S01", profile.SensorID)
	assert.Equal(t, 150.0, profile.InstallationHeight)
	require.NotNil(t, profile.WarningThreshold)
	assert.Equal(t, 10.0, *profile.WarningThreshold)
	require.NotNil(t, profile.DangerThreshold)
	assert.Equal(t, 30.0, *profile.DangerThreshold)
	assert.Equal(t, models.StatusNormal, profile.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSensorProfile_NullThresholds(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"sensor_id", "location_name", "lng", "lat", "installation_height",
		"warning_threshold", "danger_threshold", "is_active", "status", "last_data_time",
	}).AddRow(
		"S02", "Canal bridge", 106.71, 10.78, 120.0,
		nil, nil, true, "normal", nil,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("S02").
		WillReturnRows(rows)

	profile, err := repo.GetSensorProfile(context.Background(), "S02")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Nil(t, profile.WarningThreshold)
	assert.Nil(t, profile.DangerThreshold)
	assert.Nil(t, profile.LastDataTime)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSensorProfile_UnknownReturnsNil(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	profile, err := repo.GetSensorProfile(context.Background(), "ghost")

	require.NoError(t, err)
	assert.Nil(t, profile)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSensorProfile_EmptyID(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	profile, err := repo.GetSensorProfile(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, profile)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSensorHealth_Success(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE sensors`).
		WithArgs("S01", "warning", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateSensorHealth(context.Background(), "S01", models.StatusWarning, now)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSensorHealth_NotFound(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE sensors`).
		WithArgs("ghost", "normal", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateSensorHealth(context.Background(), "ghost", models.StatusNormal, now)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepStale_ReturnsTransitionedIDs(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	cutoff := time.Now().Add(-5 * time.Minute)
	rows := sqlmock.NewRows([]string{"sensor_id"}).
		AddRow("S03").
		AddRow("S07")

	mock.ExpectQuery(`UPDATE sensors`).
		WithArgs(cutoff).
		WillReturnRows(rows)

	ids, err := repo.SweepStale(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, []string{"S03", "S07"}, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepStale_NothingStale(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	cutoff := time.Now().Add(-5 * time.Minute)
	mock.ExpectQuery(`UPDATE sensors`).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"sensor_id"}))

	ids, err := repo.SweepStale(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSensorsInRadius_OrderedByDistance(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"sensor_id", "location_name", "water_level", "status", "distance",
	}).
		AddRow("S01", "District 1 underpass", 25.0, "warning", 120.5).
		AddRow("S02", "Canal bridge", 5.0, "normal", 430.0)

	mock.ExpectQuery(`SELECT`).
		WithArgs(106.7, 10.77, 500.0).
		WillReturnRows(rows)

	sensors, err := repo.FindSensorsInRadius(context.Background(),
		models.Position{Lng: 106.7, Lat: 10.77}, 500)

	require.NoError(t, err)
	require.Len(t, sensors, 2)
	assert.Equal(t, "S01", sensors[0].SensorID)
	assert.Equal(t, 25.0, sensors[0].WaterLevel)
	assert.Equal(t, models.StatusWarning, sensors[0].Status)
	assert.Equal(t, 120.5, sensors[0].DistanceMeters)
	assert.Equal(t, "S02", sensors[1].SensorID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSensorsInRadius_Empty(t *testing.T) {
	db, mock, repo := setupMockSensorDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs(106.7, 10.77, 500.0).
		WillReturnRows(sqlmock.NewRows([]string{
			"sensor_id", "location_name", "water_level", "status", "distance",
		}))

	sensors, err := repo.FindSensorsInRadius(context.Background(),
		models.Position{Lng: 106.7, Lat: 10.77}, 500)

	require.NoError(t, err)
	assert.Empty(t, sensors)

	require.NoError(t, mock.ExpectationsWereMet())
}
