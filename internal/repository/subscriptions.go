package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

// SubscriptionRepository resolves the emergency-subscriber set for an alert
// location. Subscription management is the public API's concern; the engine
// only reads.
type SubscriptionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSubscriptionRepository(db *sql.DB, logger *zap.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// FindSubscribers returns active subscribers whose subscription point lies
// within the effective radius of the alert position, nearest first. Each
// subscriber's own configured radius widens (never narrows) the system alert
// radius.
func (r *SubscriptionRepository) FindSubscribers(ctx context.Context, pos models.Position, alertRadiusMeters float64) ([]models.Subscriber, error) {
	query := `
		SELECT
			u.id AS user_id,
			u.email,
			COALESCE(u.phone, '') AS phone,
			u.full_name,
			es.notification_methods,
			ST_Distance(es.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM emergency_subscriptions es
		JOIN users u ON u.id = es.user_id
		WHERE es.is_active = true
		  AND ST_DWithin(
			es.location,
			ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
			GREATEST(es.radius, $3)
		  )
		ORDER BY distance ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pos.Lng, pos.Lat, alertRadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []models.Subscriber
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(
			&s.UserID,
			&s.Email,
			&s.Phone,
			&s.FullName,
			&s.NotificationMethods,
			&s.DistanceMeters,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}

	return subscribers, nil
}
