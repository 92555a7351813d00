package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

// AlertRequest is the handoff payload for the external dispatch service. The
// engine decides eligibility and resolves the audience; delivery channels
// (email, SMS, push) are entirely the dispatcher's concern.
type AlertRequest struct {
	SensorID     string              `json:"sensor_id"`
	LocationName string              `json:"location_name"`
	Position     models.Position     `json:"position"`
	WaterLevel   float64             `json:"water_level"`
	Velocity     *float64            `json:"velocity"`
	Status       models.SensorStatus `json:"status"`
	ObservedAt   time.Time           `json:"observed_at"`
	Subscribers  []models.Subscriber `json:"subscribers"`
}

// Client hands eligible alerts to the dispatch service over HTTP.
type Client struct {
	http   *resty.Client
	url    string
	logger *zap.Logger
}

// NewClient builds the dispatch client. Transient failures retry with
// backoff; the alert path tolerates a briefly unreachable dispatcher.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	http := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   http,
		url:    url,
		logger: logger,
	}
}

// NotifyEligible posts the alert and its audience to the dispatch service.
func (c *Client) NotifyEligible(ctx context.Context, profile models.SensorProfile, obs models.Observation, subscribers []models.Subscriber) error {
	req := AlertRequest{
		SensorID:     obs.SensorID,
		LocationName: profile.LocationName,
		Position:     profile.Position,
		WaterLevel:   obs.WaterLevel,
		Velocity:     obs.Velocity,
		Status:       obs.Status,
		ObservedAt:   obs.CreatedAt,
		Subscribers:  subscribers,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("failed to reach dispatch service: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("dispatch service rejected alert: %s", resp.Status())
	}

	c.logger.Debug("Alert posted to dispatch service",
		zap.String("sensor_id", obs.SensorID),
		zap.Int("subscribers", len(subscribers)),
	)
	return nil
}
