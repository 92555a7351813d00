package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN builds the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	Topic    string
}

// Config is the full floodwatch service configuration. All tuning constants of
// the telemetry pipeline live here and are loaded once at startup; nothing in
// the processing path reads the environment.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// Telemetry pipeline tuning
	Telemetry struct {
		// MaxPlausibleDistance is the physical upper bound for a raw ultrasonic
		// distance reading, in cm. Anything outside (0, max] is noise.
		MaxPlausibleDistance float64

		// Scalar Kalman filter constants, shared by every sensor filter.
		ProcessNoise     float64
		MeasurementNoise float64

		// Fallback thresholds when a sensor has no configured ones, in cm.
		DefaultWarningThreshold float64
		DefaultDangerThreshold  float64

		// Velocity lookup window: nearest prior observation between MinAgo and
		// MaxAgo before now, preferring the one closest to TargetAgo.
		VelocityMinAgo    time.Duration
		VelocityMaxAgo    time.Duration
		VelocityTargetAgo time.Duration

		// RapidRiseVelocity is the cm/min rate that makes a warning reading
		// notification-eligible.
		RapidRiseVelocity float64

		// AlertRadiusMeters bounds the subscriber search around a sensor.
		AlertRadiusMeters float64
	}

	// Health monitor (offline detection)
	Health struct {
		SweepInterval time.Duration
		StaleBound    time.Duration
	}

	// Crowd-report cross validation and trust scoring
	Crowd struct {
		// SensorSearchRadiusMeters bounds the validating-sensor lookup.
		SensorSearchRadiusMeters float64
		// LevelTolerance is the fraction of the expected level the sensor must
		// report for cross-verification (0.7 = 30% tolerance).
		LevelTolerance float64
		// Reliability scoring deltas and bounds.
		DefaultReliability float64
		VerifiedReward     float64
		InaccuratePenalty  float64
	}

	// Redis realtime cache and output stream
	Cache struct {
		RealtimeKeyPrefix string
		RealtimeSuffix    string
		RealtimeTTL       time.Duration
		OutputStream      string
	}

	// Notifier handoff (external dispatch service). Empty URL disables it.
	Notifier struct {
		URL     string
		Timeout time.Duration
	}

	Metrics struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment with production defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "floodwatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "floodwatch-telemetry")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "city/flood/data")

	cfg.Telemetry.MaxPlausibleDistance = getEnvFloat("TELEMETRY_MAX_DISTANCE_CM", 500)
	cfg.Telemetry.ProcessNoise = getEnvFloat("TELEMETRY_PROCESS_NOISE", 0.01)
	cfg.Telemetry.MeasurementNoise = getEnvFloat("TELEMETRY_MEASUREMENT_NOISE", 0.25)
	cfg.Telemetry.DefaultWarningThreshold = getEnvFloat("TELEMETRY_DEFAULT_WARNING_CM", 10)
	cfg.Telemetry.DefaultDangerThreshold = getEnvFloat("TELEMETRY_DEFAULT_DANGER_CM", 30)
	cfg.Telemetry.VelocityMinAgo = 4 * time.Minute
	cfg.Telemetry.VelocityMaxAgo = 6 * time.Minute
	cfg.Telemetry.VelocityTargetAgo = 5 * time.Minute
	cfg.Telemetry.RapidRiseVelocity = getEnvFloat("TELEMETRY_RAPID_RISE_CM_MIN", 5)
	cfg.Telemetry.AlertRadiusMeters = getEnvFloat("TELEMETRY_ALERT_RADIUS_M", 2000)

	cfg.Health.SweepInterval = getEnvDuration("HEALTH_SWEEP_INTERVAL", time.Minute)
	cfg.Health.StaleBound = getEnvDuration("HEALTH_STALE_BOUND", 5*time.Minute)

	cfg.Crowd.SensorSearchRadiusMeters = getEnvFloat("CROWD_SENSOR_RADIUS_M", 500)
	cfg.Crowd.LevelTolerance = getEnvFloat("CROWD_LEVEL_TOLERANCE", 0.7)
	cfg.Crowd.DefaultReliability = 50
	cfg.Crowd.VerifiedReward = getEnvFloat("CROWD_VERIFIED_REWARD", 5)
	cfg.Crowd.InaccuratePenalty = getEnvFloat("CROWD_INACCURATE_PENALTY", 10)

	cfg.Cache.RealtimeKeyPrefix = getEnv("CACHE_REALTIME_PREFIX", "floodwatch:sensor:")
	cfg.Cache.RealtimeSuffix = ":realtime"
	cfg.Cache.RealtimeTTL = getEnvDuration("CACHE_REALTIME_TTL", 10*time.Minute)
	cfg.Cache.OutputStream = getEnv("CACHE_OUTPUT_STREAM", "floodwatch:observations")

	cfg.Notifier.URL = getEnv("NOTIFIER_URL", "")
	cfg.Notifier.Timeout = getEnvDuration("NOTIFIER_TIMEOUT", 5*time.Second)

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", ":9090")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
