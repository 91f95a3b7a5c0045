package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadCart_Defaults(t *testing.T) {
	for _, key := range []string{"MONGO_URI", "MONGO_DB_NAME", "MONGO_MAX_POOL_SIZE", "MONGO_MIN_POOL_SIZE", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg := LoadCart()
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "cartdb", cfg.Mongo.Database)
	assert.Equal(t, uint64(100), cfg.Mongo.MaxPoolSize)
	assert.Equal(t, uint64(10), cfg.Mongo.MinPoolSize)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
}

func TestLoadCart_Overrides(t *testing.T) {
	t.Setenv("MONGO_MAX_POOL_SIZE", "20")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg := LoadCart()
	assert.Equal(t, uint64(20), cfg.Mongo.MaxPoolSize)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
}

func TestLoadInventory_Durations(t *testing.T) {
	t.Setenv("RESERVATION_TTL", "5m")
	t.Setenv("RESERVATION_SWEEP_INTERVAL", "")

	cfg := LoadInventory()
	assert.Equal(t, 5*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
}
