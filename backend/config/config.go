package config

import (
	"log"
	"net"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RegistrationDisabled bool
	AdminPassword        string
	TrustedProxies       []string
	SingleLineLogging    bool
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "data/kosync.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "kosync"),

		RegistrationDisabled: getEnv("REGISTRATION_DISABLED", "") == "true",
		AdminPassword:        getEnv("ADMIN_PASSWORD", "admin"),
		TrustedProxies:       ParseTrustedProxies(getEnv("TRUSTED_PROXIES", "")),
		SingleLineLogging:    getEnv("SINGLE_LINE_LOGGING", "") == "true",
	}, nil
}

// ParseTrustedProxies splits the comma-separated proxy list and drops
// entries that do not parse as IP addresses.
func ParseTrustedProxies(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var proxies []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if net.ParseIP(entry) == nil {
			log.Printf("Invalid trusted proxy - %s", entry)
			continue
		}
		proxies = append(proxies, entry)
	}

	if len(proxies) > 0 {
		log.Printf("Trusted proxies: %s", strings.Join(proxies, ", "))
	}

	return proxies
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
