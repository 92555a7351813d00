package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

func alertFixture() (models.SensorProfile, models.Observation, []models.Subscriber) {
	velocity := 6.5
	profile := models.SensorProfile{
		SensorID:     "S01",
		LocationName: "District 1 underpass",
		Position:     models.Position{Lng: 106.7, Lat: 10.77},
	}
	obs := models.Observation{
		SensorID:   "S01",
		WaterLevel: 18,
		Velocity:   &velocity,
		Status:     models.StatusWarning,
		CreatedAt:  time.Now(),
	}
	subs := []models.Subscriber{
		{UserID: 7, Email: "b@example.com", FullName: "Tran Van B", NotificationMethods: "email,sms"},
	}
	return profile, obs, subs
}

func TestNotifyEligible_PostsAlert(t *testing.T) {
	var received AlertRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second, zap.NewNop())
	profile, obs, subs := alertFixture()

	err := c.NotifyEligible(context.Background(), profile, obs, subs)

	require.NoError(t, err)
	assert.Equal(t, "S01", received.SensorID)
	assert.Equal(t, "District 1 underpass", received.LocationName)
	assert.Equal(t, 18.0, received.WaterLevel)
	require.NotNil(t, received.Velocity)
	assert.Equal(t, 6.5, *received.Velocity)
	require.Len(t, received.Subscribers, 1)
	assert.Equal(t, int64(7), received.Subscribers[0].UserID)
}

func TestNotifyEligible_DispatcherError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second, zap.NewNop())
	profile, obs, subs := alertFixture()

	err := c.NotifyEligible(context.Background(), profile, obs, subs)
	assert.Error(t, err)
}

func TestNotifyEligible_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond, zap.NewNop())
	profile, obs, subs := alertFixture()

	err := c.NotifyEligible(context.Background(), profile, obs, subs)
	assert.Error(t, err)
}
