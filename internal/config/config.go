package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/portier.db"

	// Message bus
	MQTTBrokerURL   string
	MQTTTopicPrefix string
	ScanTimezone    string // IANA zone of the scanner clocks; "" = server local

	// Management API auth
	JWTSecret string

	// Audit retention
	EventRetentionDays int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 24)
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("PORTIER_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		HTTPAddr: getenvDefault("PORTIER_HTTP_ADDR", ":8080"),
		Env:      env,
		DBPath:   getenvDefault("PORTIER_DB_PATH", "./data/portier.db"),

		MQTTBrokerURL:   getenvDefault("PORTIER_MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTTopicPrefix: getenvDefault("PORTIER_MQTT_TOPIC_PREFIX", "iot/nfc"),
		ScanTimezone:    os.Getenv("PORTIER_SCAN_TZ"),

		JWTSecret: os.Getenv("PORTIER_JWT_SECRET"),

		EventRetentionDays: getenvInt("PORTIER_EVENT_RETENTION_DAYS", 0),
		PruneIntervalHours: getenvInt("PORTIER_PRUNE_INTERVAL_HOURS", 24),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
