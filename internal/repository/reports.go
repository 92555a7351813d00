package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

// CrowdReportRepository stores citizen flood reports, their moderation state,
// and the reporter reliability aggregates.
type CrowdReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCrowdReportRepository(db *sql.DB, logger *zap.Logger) *CrowdReportRepository {
	return &CrowdReportRepository{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `
	id, reporter_name, reporter_id, flood_level,
	ST_X(location::geometry) AS lng, ST_Y(location::geometry) AS lat,
	reliability_score, validation_status, verified_by_sensor, photo_url,
	moderation_status, moderated_by, moderated_at, rejection_reason, created_at`

// CreateReport inserts a new report with its validation outcome and the
// reporter's reliability snapshot already resolved, and returns the stored
// row.
func (r *CrowdReportRepository) CreateReport(ctx context.Context, report *models.CrowdReport) (*models.CrowdReport, error) {
	query := `
		INSERT INTO crowd_reports (
			reporter_name, reporter_id, flood_level, location,
			reliability_score, validation_status, verified_by_sensor, photo_url,
			moderation_status, created_at
		)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography,
		        $6, $7, $8, $9, $10, $11)
		RETURNING ` + reportColumns

	var reporterID sql.NullString
	if report.ReporterID != nil {
		reporterID = sql.NullString{String: *report.ReporterID, Valid: true}
	}
	var photoURL sql.NullString
	if report.PhotoURL != nil {
		photoURL = sql.NullString{String: *report.PhotoURL, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, query,
		report.ReporterName,
		reporterID,
		string(report.Level),
		report.Position.Lng,
		report.Position.Lat,
		report.ReliabilityScore,
		report.ValidationStatus,
		report.VerifiedBySensor,
		photoURL,
		report.ModerationStatus,
		report.CreatedAt,
	)

	created, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create crowd report: %w", err)
	}

	return created, nil
}

// GetReportByID returns the report, or nil when it does not exist.
func (r *CrowdReportRepository) GetReportByID(ctx context.Context, id int64) (*models.CrowdReport, error) {
	query := `SELECT ` + reportColumns + ` FROM crowd_reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crowd report: %w", err)
	}

	return report, nil
}

// ModerateReport writes the moderation verdict onto a still-pending report.
// The pending guard lives in the WHERE clause so two concurrent moderators
// cannot both win; zero rows affected means the report was already resolved
// (or missing) and the caller decides which.
func (r *CrowdReportRepository) ModerateReport(ctx context.Context, id int64, status string, moderatorID int64, reason *string, moderatedAt time.Time) (bool, error) {
	query := `
		UPDATE crowd_reports
		SET moderation_status = $2,
		    moderated_by = $3,
		    moderated_at = $4,
		    rejection_reason = $5
		WHERE id = $1
		  AND moderation_status = 'pending'
	`

	var rejectionReason sql.NullString
	if reason != nil {
		rejectionReason = sql.NullString{String: *reason, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, id, status, moderatorID, moderatedAt, rejectionReason)
	if err != nil {
		return false, fmt.Errorf("failed to moderate report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check moderation result: %w", err)
	}

	return affected > 0, nil
}

// GetPendingModerationReports lists reports awaiting a verdict, oldest first.
func (r *CrowdReportRepository) GetPendingModerationReports(ctx context.Context, limit int) ([]models.CrowdReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM crowd_reports
		WHERE moderation_status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`

	return r.queryReports(ctx, query, limit)
}

// GetRecentReports lists the newest reports that have not been rejected.
func (r *CrowdReportRepository) GetRecentReports(ctx context.Context, since time.Time, limit int) ([]models.CrowdReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM crowd_reports
		WHERE created_at >= $1
		  AND moderation_status != 'rejected'
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryReports(ctx, query, since, limit)
}

// AverageReliability returns the mean reliability score across the reporter's
// rows, or defaultScore for a first-time reporter.
func (r *CrowdReportRepository) AverageReliability(ctx context.Context, reporterID string, defaultScore float64) (float64, error) {
	query := `
		SELECT COALESCE(AVG(reliability_score), $2)
		FROM crowd_reports
		WHERE reporter_id = $1
	`

	var avg float64
	err := r.db.QueryRowContext(ctx, query, reporterID, defaultScore).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to average reliability: %w", err)
	}

	return avg, nil
}

// RewriteReliability sets the reliability score on every row of the reporter,
// keeping the per-reporter score consistent across their history.
func (r *CrowdReportRepository) RewriteReliability(ctx context.Context, reporterID string, score float64) error {
	query := `
		UPDATE crowd_reports
		SET reliability_score = $2
		WHERE reporter_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, reporterID, score); err != nil {
		return fmt.Errorf("failed to rewrite reliability: %w", err)
	}

	return nil
}

// GetReliabilityRanking aggregates identified reporters by trust, most
// reliable first. Anonymous reports carry no reporter_id and are excluded.
func (r *CrowdReportRepository) GetReliabilityRanking(ctx context.Context, limit int) ([]models.ReliabilityRank, error) {
	query := `
		SELECT
			reporter_id,
			MAX(reporter_name) AS reporter_name,
			COUNT(*) AS total_reports,
			AVG(reliability_score) AS avg_reliability,
			COUNT(*) FILTER (WHERE verified_by_sensor) AS verified_count,
			COUNT(*) FILTER (WHERE moderation_status = 'approved') AS approved_count
		FROM crowd_reports
		WHERE reporter_id IS NOT NULL
		GROUP BY reporter_id
		ORDER BY avg_reliability DESC, total_reports DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get reliability ranking: %w", err)
	}
	defer rows.Close()

	var ranking []models.ReliabilityRank
	for rows.Next() {
		var rank models.ReliabilityRank
		if err := rows.Scan(
			&rank.ReporterID,
			&rank.ReporterName,
			&rank.TotalReports,
			&rank.AvgReliability,
			&rank.VerifiedCount,
			&rank.ApprovedCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		ranking = append(ranking, rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ranking rows: %w", err)
	}

	return ranking, nil
}

func (r *CrowdReportRepository) queryReports(ctx context.Context, query string, args ...interface{}) ([]models.CrowdReport, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crowd reports: %w", err)
	}
	defer rows.Close()

	var reports []models.CrowdReport
	for rows.Next() {
		report, err := scanReportRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crowd report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate crowd reports: %w", err)
	}

	return reports, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row *sql.Row) (*models.CrowdReport, error) {
	return scanReportRow(row)
}

func scanReportRow(row rowScanner) (*models.CrowdReport, error) {
	var report models.CrowdReport
	var reporterID, photoURL, rejectionReason sql.NullString
	var moderatedBy sql.NullInt64
	var moderatedAt sql.NullTime

	err := row.Scan(
		&report.ID,
		&report.ReporterName,
		&reporterID,
		&report.Level,
		&report.Position.Lng,
		&report.Position.Lat,
		&report.ReliabilityScore,
		&report.ValidationStatus,
		&report.VerifiedBySensor,
		&photoURL,
		&report.ModerationStatus,
		&moderatedBy,
		&moderatedAt,
		&rejectionReason,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reporterID.Valid {
		report.ReporterID = &reporterID.String
	}
	if photoURL.Valid {
		report.PhotoURL = &photoURL.String
	}
	if moderatedBy.Valid {
		report.ModeratedBy = &moderatedBy.Int64
	}
	if moderatedAt.Valid {
		report.ModeratedAt = &moderatedAt.Time
	}
	if rejectionReason.Valid {
		report.RejectionReason = &rejectionReason.String
	}

	return &report, nil
}
