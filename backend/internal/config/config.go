package config

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"redalert/backend/pkg/dialect"
)

type EnvKey string

const (
	EnvPort      EnvKey = "PORT"
	EnvDataDir   EnvKey = "DATA_DIR"
	EnvLogLevel  EnvKey = "LOG_LEVEL"
	EnvLogFormat EnvKey = "LOG_FORMAT"
	EnvLogToFile EnvKey = "LOG_TO_FILE"
	EnvPublicURL EnvKey = "PUBLIC_URL"
	EnvGenerate  EnvKey = "GENERATE"
	EnvDocsDir   EnvKey = "DOCS_DIR"

	EnvDBDialect EnvKey = "DB_DIALECT"
	EnvDBHost    EnvKey = "DB_HOST"
	EnvDBPort    EnvKey = "DB_PORT"
	EnvDBName    EnvKey = "DB_NAME"
	EnvDBUser    EnvKey = "DB_USER"
	EnvDBPass    EnvKey = "DB_PASSWORD"
	EnvDBSSLMode EnvKey = "DB_SSLMODE"

	EnvMQTTBrokerPort EnvKey = "MQTT_SERVER_PORT"

	EnvMQTTBroker   EnvKey = "MQTT_BROKER"
	EnvMQTTClientID EnvKey = "MQTT_CLIENT_ID"
	EnvMQTTUsername EnvKey = "MQTT_USERNAME"
	EnvMQTTPassword EnvKey = "MQTT_PASSWORD"

	EnvRedisAddr     EnvKey = "REDIS_ADDR"
	EnvRedisPassword EnvKey = "REDIS_PASSWORD"
	EnvRedisDB       EnvKey = "REDIS_DB"

	EnvSessionSecret EnvKey = "SESSION_SECRET"
	EnvSessionTTL    EnvKey = "SESSION_TTL"

	EnvFreshnessWindow EnvKey = "FRESHNESS_WINDOW"
	EnvAlertLead       EnvKey = "ALERT_LEAD"
	EnvResponderAPIKey EnvKey = "RESPONDER_API_KEY"

	EnvSMTPHost     EnvKey = "SMTP_HOST"
	EnvSMTPPort     EnvKey = "SMTP_PORT"
	EnvSMTPUsername EnvKey = "SMTP_USERNAME"
	EnvSMTPPassword EnvKey = "SMTP_PASSWORD"
	EnvSMTPFrom     EnvKey = "SMTP_FROM"
)

type Config struct {
	Port      int
	DataDir   string
	PublicURL string
	Database  string
	Dialect   dialect.Dialect
	LogLevel  slog.Leveler
	LogFormat string
	LogOutput io.Writer

	// Generate writes the API documentation to DocsDir and exits.
	Generate bool
	DocsDir  string

	// Embedded broker
	MQTTBrokerPort int

	// Client connection to the broker
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Empty RedisAddr keeps sessions in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret          []byte
	SessionSecretGenerated bool
	SessionTTL             time.Duration

	FreshnessWindow time.Duration
	AlertLead       time.Duration
	ResponderAPIKey string

	// Empty SMTPHost logs outgoing mail instead of sending it.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func New() (*Config, error) {
	dataDir := getStringEnv(EnvDataDir, "data")

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbDialect, err := dialect.Parse(getStringEnv(EnvDBDialect, string(dialect.SQLite)))
	if err != nil {
		return nil, fmt.Errorf("invalid database dialect: %w", err)
	}

	var dbConnString string

	switch dbDialect {
	case dialect.SQLite:
		dbConnString = filepath.Join(dataDir, "database.sqlite")
	case dialect.PostgreSQL:
		host := getStringEnv(EnvDBHost, "localhost")
		port := getIntEnv(EnvDBPort, 5432)
		dbName := getStringEnv(EnvDBName, "redalert")
		user := getStringEnv(EnvDBUser, "redalert")
		password := getStringEnv(EnvDBPass, "")
		sslmode := getStringEnv(EnvDBSSLMode, "disable")

		dbConnString = fmt.Sprintf(
			"postgres://%s:%s@%s/%s?sslmode=%s",
			url.QueryEscape(user),
			url.QueryEscape(password),
			net.JoinHostPort(host, strconv.Itoa(port)),
			dbName, sslmode,
		)
	}

	secret := []byte(getStringEnv(EnvSessionSecret, ""))
	generated := false

	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}

		generated = true
	}

	var logOutput io.Writer = os.Stdout

	if getBoolEnv(EnvLogToFile, false) {
		f, err := os.OpenFile(filepath.Join(dataDir, "app.log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		logOutput = f
	}

	port := getIntEnv(EnvPort, 8080)

	return &Config{
		Port:                   port,
		DataDir:                dataDir,
		PublicURL:              strings.TrimSuffix(getStringEnv(EnvPublicURL, fmt.Sprintf("http://localhost:%d", port)), "/"),
		Database:               dbConnString,
		Dialect:                dbDialect,
		LogLevel:               getLogLevelEnv(EnvLogLevel, slog.LevelInfo),
		LogFormat:              strings.ToLower(getStringEnv(EnvLogFormat, "json")),
		LogOutput:              logOutput,
		Generate:               getBoolEnv(EnvGenerate, false),
		DocsDir:                getStringEnv(EnvDocsDir, "docs"),
		MQTTBrokerPort:         getIntEnv(EnvMQTTBrokerPort, 1883),
		MQTTBroker:             getStringEnv(EnvMQTTBroker, "tcp://127.0.0.1:1883"),
		MQTTClientID:           getStringEnv(EnvMQTTClientID, "redalert-server"),
		MQTTUsername:           getStringEnv(EnvMQTTUsername, ""),
		MQTTPassword:           getStringEnv(EnvMQTTPassword, ""),
		RedisAddr:              getStringEnv(EnvRedisAddr, ""),
		RedisPassword:          getStringEnv(EnvRedisPassword, ""),
		RedisDB:                getIntEnv(EnvRedisDB, 0),
		SessionSecret:          secret,
		SessionSecretGenerated: generated,
		SessionTTL:             getDurationEnv(EnvSessionTTL, 7*24*time.Hour),
		FreshnessWindow:        getDurationEnv(EnvFreshnessWindow, 10*time.Second),
		AlertLead:              getDurationEnv(EnvAlertLead, time.Second),
		ResponderAPIKey:        getStringEnv(EnvResponderAPIKey, ""),
		SMTPHost:               getStringEnv(EnvSMTPHost, ""),
		SMTPPort:               getIntEnv(EnvSMTPPort, 587),
		SMTPUsername:           getStringEnv(EnvSMTPUsername, ""),
		SMTPPassword:           getStringEnv(EnvSMTPPassword, ""),
		SMTPFrom:               getStringEnv(EnvSMTPFrom, "no-reply@redalert.local"),
	}, nil
}

func (c *Config) Close() error {
	if f, ok := c.LogOutput.(*os.File); ok {
		if f != os.Stdout && f != os.Stderr {
			return f.Close()
		}
	}

	return nil
}

func getStringEnv(key EnvKey, defaultVal string) string {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	return val
}

func getBoolEnv(key EnvKey, defaultVal bool) bool {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToLower(val) {
	case "true", "1":
		return true
	default:
		return false
	}
}

func getIntEnv(key EnvKey, defaultVal int) int {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if intVal, err := strconv.Atoi(val); err == nil {
		return intVal
	}

	return defaultVal
}

// getDurationEnv accepts Go duration syntax ("10s", "1m30s").
func getDurationEnv(key EnvKey, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}

	return defaultVal
}

func getLogLevelEnv(key EnvKey, defaultVal slog.Leveler) slog.Leveler {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToUpper(val) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}

	return defaultVal
}
