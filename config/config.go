package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/aura-webinar/conference/pkg/database"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	WebRTC     WebRTCConfig
	AWS        AWSConfig
	Conference ConferenceConfig
	Instance   InstanceConfig
}

// WebRTCConfig holds STUN/TURN ICE servers handed to clients.
type WebRTCConfig struct {
	ICEUrls        []string // comma-separated in env
	TURNUsername   string
	TURNCredential string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // used as-is when set
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
	LogLevel string // pgx trace level
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	FilesBucket          string
	TranscriptsBucket    string
	PresignExpireMinutes int
}

// ConferenceConfig tunes rooms and signaling connections.
type ConferenceConfig struct {
	LivenessTimeout        time.Duration
	PingInterval           time.Duration
	SendBuffer             int
	ReadLimitBytes         int64
	ChatHistoryLimit       int
	WhiteboardLogLimit     int
	FileShareLimit         int
	DefaultMaxParticipants int
	HostPolicy             string
	EndedRetention         time.Duration
}

// InstanceConfig identifies this process among the instances sharing Redis.
type InstanceConfig struct {
	ID       string
	LeaseTTL time.Duration
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Pool returns the pool settings for database.NewPostgresPool.
func (c DatabaseConfig) Pool() database.PoolConfig {
	return database.PoolConfig{DSN: c.DSN(), MaxConns: int32(c.MaxConns), MinConns: int32(c.MinConns), LogLevel: c.LogLevel}
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "conference"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 1),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		WebRTC: WebRTCConfig{
			ICEUrls:        splitTrim(getEnv("WEBRTC_ICE_URLS", "stun:stun.l.google.com:19302"), ","),
			TURNUsername:   getEnv("WEBRTC_TURN_USERNAME", ""),
			TURNCredential: getEnv("WEBRTC_TURN_CREDENTIAL", ""),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			FilesBucket:          getEnv("AWS_S3_FILES_BUCKET", "conference-files-bucket"),
			TranscriptsBucket:    getEnv("AWS_S3_TRANSCRIPTS_BUCKET", "conference-transcripts-bucket"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Conference: ConferenceConfig{
			LivenessTimeout:        seconds("CONFERENCE_LIVENESS_TIMEOUT_SEC", 60),
			PingInterval:           seconds("CONFERENCE_PING_INTERVAL_SEC", 25),
			SendBuffer:             getEnvInt("CONFERENCE_SEND_BUFFER", 256),
			ReadLimitBytes:         int64(getEnvInt("CONFERENCE_READ_LIMIT_BYTES", 65536)),
			ChatHistoryLimit:       getEnvInt("CONFERENCE_CHAT_HISTORY_LIMIT", 500),
			WhiteboardLogLimit:     getEnvInt("CONFERENCE_WHITEBOARD_LOG_LIMIT", 2000),
			FileShareLimit:         getEnvInt("CONFERENCE_FILE_SHARE_LIMIT", 200),
			DefaultMaxParticipants: getEnvInt("CONFERENCE_DEFAULT_MAX_PARTICIPANTS", 0),
			HostPolicy:             getEnv("CONFERENCE_HOST_POLICY", "none"),
			EndedRetention:         time.Duration(getEnvInt("CONFERENCE_ENDED_RETENTION_MIN", 60)) * time.Minute,
		},
		Instance: InstanceConfig{
			ID:       getEnv("INSTANCE_ID", uuid.NewString()),
			LeaseTTL: seconds("CONFERENCE_LEASE_TTL_SEC", 30),
		},
	}
	if cfg.Conference.PingInterval >= cfg.Conference.LivenessTimeout {
		return nil, fmt.Errorf("CONFERENCE_PING_INTERVAL_SEC must be below CONFERENCE_LIVENESS_TIMEOUT_SEC")
	}
	if cfg.Instance.LeaseTTL < 3*time.Second {
		return nil, fmt.Errorf("CONFERENCE_LEASE_TTL_SEC must be at least 3")
	}
	return cfg, nil
}

func seconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
