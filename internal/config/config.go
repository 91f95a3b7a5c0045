// Package config loads service configuration from environment variables,
// with a .env file honoured when present. Every value has a development
// default so a service starts locally without any setup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	_ = godotenv.Load()
}

// Postgres holds connection settings for one of the relational stores.
type Postgres struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Mongo holds connection and pool settings for the cart store.
type Mongo struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
}

type CartConfig struct {
	OpsPort       string
	Brokers       []string
	Mongo         Mongo
	RedisAddr     string
	RedisPass     string
	InventoryAddr string
}

type InventoryConfig struct {
	OpsPort        string
	Brokers        []string
	DB             Postgres
	ReservationTTL time.Duration
	SweepInterval  time.Duration
}

type PaymentConfig struct {
	OpsPort     string
	Brokers     []string
	DB          Postgres
	GatewayAddr string
}

type OrderConfig struct {
	OpsPort string
	Brokers []string
	DB      Postgres
}

func LoadCart() CartConfig {
	return CartConfig{
		OpsPort:       getEnv("CART_OPS_PORT", "8081"),
		Brokers:       brokers(),
		Mongo: Mongo{
			URI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:    getEnv("MONGO_DB_NAME", "cartdb"),
			MaxPoolSize: uint64(getInt("MONGO_MAX_POOL_SIZE", 100)),
			MinPoolSize: uint64(getInt("MONGO_MIN_POOL_SIZE", 10)),
		},
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:     getEnv("REDIS_PASSWORD", ""),
		InventoryAddr: getEnv("INVENTORY_LOOKUP_ADDR", "http://localhost:8082"),
	}
}

func LoadInventory() InventoryConfig {
	return InventoryConfig{
		OpsPort:        getEnv("INVENTORY_OPS_PORT", "8082"),
		Brokers:        brokers(),
		DB:             postgres("INVENTORY", "inventorydb"),
		ReservationTTL: getDuration("RESERVATION_TTL", 10*time.Minute),
		SweepInterval:  getDuration("RESERVATION_SWEEP_INTERVAL", 30*time.Second),
	}
}

func LoadPayment() PaymentConfig {
	return PaymentConfig{
		OpsPort:     getEnv("PAYMENT_OPS_PORT", "8083"),
		Brokers:     brokers(),
		DB:          postgres("PAYMENT", "paymentdb"),
		GatewayAddr: getEnv("PAYMENT_GATEWAY_ADDR", "http://localhost:9090"),
	}
}

func LoadOrder() OrderConfig {
	return OrderConfig{
		OpsPort: getEnv("ORDER_OPS_PORT", "8084"),
		Brokers: brokers(),
		DB:      postgres("ORDER", "orderdb"),
	}
}

func brokers() []string {
	raw := getEnv("KAFKA_BROKERS", "localhost:9092")
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func postgres(prefix, defaultDB string) Postgres {
	return Postgres{
		Host:              getEnv(prefix+"_DB_HOST", "localhost"),
		Port:              getInt(prefix+"_DB_PORT", 5432),
		User:              getEnv(prefix+"_DB_USER", "postgres"),
		Password:          getEnv(prefix+"_DB_PASSWORD", "postgres"),
		DBName:            getEnv(prefix+"_DB_NAME", defaultDB),
		MigrationsDirPath: getEnv(prefix+"_MIGRATIONS_DIR", "migrations/"+strings.ToLower(prefix)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
