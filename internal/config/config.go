package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Tariff là biểu phí cho một loại xe: giá cơ bản cho block đầu tiên
// và giá cộng thêm cho mỗi block tiếp theo (VND).
type Tariff struct {
	Base     float64
	PerBlock float64
}

type Config struct {
	ServerPort string

	// Remote parking service
	APIBaseURL    string
	WSURL         string
	RemoteTimeout time.Duration

	// Tài khoản đăng nhập vào remote service
	RemoteUsername string
	RemotePassword string

	// API key cho console (các màn hình đọc dữ liệu)
	ConsoleAPIKey string

	// Biểu phí
	Tariffs        map[string]Tariff
	TimeBlockHours int

	// Giới hạn bãi xe
	MaxActiveSessions int
	PlatePattern      string

	// Đồng bộ định kỳ
	RefreshInterval time.Duration

	// Chính sách reconnect của kênh realtime
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	ReconnectAttempts int
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	refreshSec, _ := strconv.Atoi(getEnv("REFRESH_INTERVAL_SECONDS", "30"))
	remoteTimeoutSec, _ := strconv.Atoi(getEnv("REMOTE_TIMEOUT_SECONDS", "30"))
	maxActive, _ := strconv.Atoi(getEnv("MAX_ACTIVE_SESSIONS", "999"))
	blockHours, _ := strconv.Atoi(getEnv("TIME_BLOCK_HOURS", "2"))
	reconnectAttempts, _ := strconv.Atoi(getEnv("WS_RECONNECT_ATTEMPTS", "5"))
	reconnectDelayMs, _ := strconv.Atoi(getEnv("WS_RECONNECT_DELAY_MS", "1000"))
	reconnectDelayMaxMs, _ := strconv.Atoi(getEnv("WS_RECONNECT_DELAY_MAX_MS", "5000"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8081"),

		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:5000/api"),
		WSURL:         getEnv("WS_URL", "ws://localhost:5000/ws"),
		RemoteTimeout: time.Duration(remoteTimeoutSec) * time.Second,

		RemoteUsername: getEnv("REMOTE_USERNAME", "admin"),
		RemotePassword: getEnv("REMOTE_PASSWORD", "admin123"),

		ConsoleAPIKey: getEnv("CONSOLE_API_KEY", ""),

		Tariffs: map[string]Tariff{
			"car": {
				Base:     getEnvFloat("PRICE_CAR_BASE", 10000),
				PerBlock: getEnvFloat("PRICE_CAR_PER_BLOCK", 5000),
			},
			"motorbike": {
				Base:     getEnvFloat("PRICE_MOTORBIKE_BASE", 5000),
				PerBlock: getEnvFloat("PRICE_MOTORBIKE_PER_BLOCK", 2000),
			},
			"bicycle": {
				Base:     getEnvFloat("PRICE_BICYCLE_BASE", 2000),
				PerBlock: getEnvFloat("PRICE_BICYCLE_PER_BLOCK", 1000),
			},
		},
		TimeBlockHours: blockHours,

		MaxActiveSessions: maxActive,
		PlatePattern:      getEnv("PLATE_PATTERN", `^[0-9]{2}[A-Z]{1,2}-?[0-9]{4,5}$`),

		RefreshInterval: time.Duration(refreshSec) * time.Second,

		ReconnectDelay:    time.Duration(reconnectDelayMs) * time.Millisecond,
		ReconnectDelayMax: time.Duration(reconnectDelayMaxMs) * time.Millisecond,
		ReconnectAttempts: reconnectAttempts,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Biến môi trường '%s' không phải là số, sử dụng giá trị mặc định: %v", key, fallback)
	}
	return fallback
}
