package swatches

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnv overlays environment variables on cfg. Unset or unparsable variables leave the
// current value in place.
func ApplyEnv(cfg *Config) {
	db := &cfg.Database
	db.Host = getEnv("DB_HOST", db.Host)
	db.Port = getEnvInt("DB_PORT", db.Port)
	db.Database = getEnv("DB_NAME", db.Database)
	db.Username = getEnv("DB_USER", db.Username)
	db.Password = getEnv("DB_PASSWORD", db.Password)
	db.SSLMode = getEnv("DB_SSL_MODE", db.SSLMode)
	db.MaxConnections = getEnvInt("DB_MAX_CONNECTIONS", db.MaxConnections)
	db.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", db.MaxIdleConns)
	db.ConnMaxLifetime = getEnvSeconds("DB_CONN_MAX_LIFETIME_SECONDS", db.ConnMaxLifetime)
	db.ConnMaxIdleTime = getEnvSeconds("DB_CONN_MAX_IDLE_TIME_SECONDS", db.ConnMaxIdleTime)
	db.Timeout = getEnvSeconds("DB_TIMEOUT_SECONDS", db.Timeout)
	db.UseIAMAuth = getEnvBool("DB_USE_IAM_AUTH", db.UseIAMAuth)
	db.Region = getEnv("DB_REGION", db.Region)

	srv := &cfg.Server
	srv.Port = getEnv("PORT", srv.Port)
	srv.APIToken = getEnv("API_TOKEN", srv.APIToken)
	srv.RunWorker = getEnvBool("RUN_WORKER", srv.RunWorker)

	cfg.Batch.LockStaleAfter = getEnvSeconds("BATCH_LOCK_STALE_AFTER_SECONDS", cfg.Batch.LockStaleAfter)
	cfg.Schedule.PollInterval = getEnvSeconds("SCHEDULE_POLL_INTERVAL_SECONDS", cfg.Schedule.PollInterval)

	ex := &cfg.Export
	ex.Enabled = getEnvBool("EXPORT_ENABLED", ex.Enabled)
	ex.Bucket = getEnv("EXPORT_BUCKET", ex.Bucket)
	ex.Prefix = getEnv("EXPORT_PREFIX", ex.Prefix)
	ex.Region = getEnv("EXPORT_REGION", ex.Region)
	ex.Endpoint = getEnv("EXPORT_ENDPOINT", ex.Endpoint)
	ex.AccessKey = getEnv("EXPORT_ACCESS_KEY", ex.AccessKey)
	ex.SecretKey = getEnv("EXPORT_SECRET_KEY", ex.SecretKey)
	ex.UsePathStyle = getEnvBool("EXPORT_USE_PATH_STYLE", ex.UsePathStyle)
	ex.WorkDir = getEnv("EXPORT_WORK_DIR", ex.WorkDir)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
