package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv - error berarti .env tidak ada/terbaca, env system tetap dipakai.
// Pemanggil yang memutuskan cara mencatatnya.
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

func GetEnv(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func GetEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return n
}

// Settings - semua konfigurasi runtime dari environment
type Settings struct {
	AppHost string
	AppPort string

	DBDriver   string
	DBDSN      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	// RecaptchaSecret kosong = login dashboard tanpa reCAPTCHA
	RecaptchaSecret string

	StationUser string
	StationPass string

	// PortalTokens format "employee_id:token,employee_id:token"
	PortalTokens map[string]string

	Timezone string
	Sessions string

	AMQPURL      string
	AMQPExchange string

	LogLevel  string
	LogFormat string

	BroadcastBuffer int
}

func Load() Settings {
	return Settings{
		AppHost: GetEnv("APP_HOST", "0.0.0.0"),
		AppPort: GetEnv("APP_PORT", "8000"),

		DBDriver:   strings.ToLower(GetEnv("DB_DRIVER", "sqlite")),
		DBDSN:      os.Getenv("DB_DSN"),
		DBHost:     GetEnv("DB_HOST", "127.0.0.1"),
		DBPort:     GetEnv("DB_PORT", "3306"),
		DBUser:     GetEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     GetEnv("DB_NAME", "kantin"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       GetEnvInt("REDIS_DB", 0),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RecaptchaSecret: os.Getenv("RECAPTCHA_SECRET_KEY"),

		StationUser: os.Getenv("STATION_USER"),
		StationPass: os.Getenv("STATION_PASS"),

		PortalTokens: ParsePortalTokens(os.Getenv("PORTAL_TOKENS")),

		Timezone: GetEnv("CANTEEN_TIMEZONE", "Asia/Jakarta"),
		Sessions: GetEnv("CANTEEN_SESSIONS", "08:00-11:00"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: GetEnv("AMQP_EXCHANGE", "canteen.transactions"),

		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "text"),

		BroadcastBuffer: GetEnvInt("BROADCAST_BUFFER", 64),
	}
}

func ParsePortalTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		employeeID, token, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		employeeID = strings.TrimSpace(employeeID)
		token = strings.TrimSpace(token)
		if employeeID == "" || token == "" {
			continue
		}
		tokens[employeeID] = token
	}
	return tokens
}
