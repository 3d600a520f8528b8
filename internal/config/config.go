package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gitlab.ozon.dev/qwestard/umishka/internal/calendar"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	StoreBackend  string
	DataDir       string
	StoreKey      string
	DSN           string
	RedisAddr     string
	RedisDB       int
	ExportDir     string
	ClipboardFile string
	SyncDelay     time.Duration
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroup    string
	Device        string
	Holidays      []string
	LogLevel      string

	JournalBatchSize int
	JournalTimeout   time.Duration
}

// LoadConfig читает .env (если есть) и переменные окружения.
func LoadConfig() *Config {
	_ = godotenv.Load()

	device := getEnv("DEVICE_NAME", "Windows")
	return &Config{
		StoreBackend:  getEnv("STORE_BACKEND", BackendFile),
		DataDir:       getEnv("DATA_DIR", "data"),
		StoreKey:      getEnv("STORE_KEY", "umishka_orders_v2"),
		DSN:           getEnv("APP_DSN", "host=localhost user=postgres password=postgres dbname=umishka sslmode=disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		ExportDir:     getEnv("EXPORT_DIR", "export"),
		ClipboardFile: getEnv("CLIPBOARD_FILE", "clipboard.txt"),
		SyncDelay:     getEnvAsDuration("SYNC_DELAY", 1500*time.Millisecond),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "umishka-sync"),
		KafkaGroup:    getEnv("KAFKA_GROUP", "umishka-"+device),
		Device:        device,
		Holidays:      getEnvAsList("HOLIDAYS", calendar.RussianHolidays2026),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		JournalBatchSize: getEnvAsInt("JOURNAL_BATCH_SIZE", 20),
		JournalTimeout:   getEnvAsDuration("JOURNAL_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		return splitList(value)
	}
	return defaultVal
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
