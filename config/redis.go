package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisMu     sync.RWMutex
)

// ConnectRedis builds a Redis client from REDIS_* environment variables and
// stores it as the shared client. It returns (nil, nil) when Redis is disabled
// or the app runs in the test environment.
func ConnectRedis() (*redis.Client, error) {
	if os.Getenv("APPENV") == "test" {
		return nil, nil
	}
	if enabled, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("REDIS_ENABLED"))); !enabled {
		return nil, nil
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	pass := os.Getenv("REDIS_PASSWORD")
	dbNum := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if v, e := strconv.Atoi(dbStr); e == nil {
			dbNum = v
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       dbNum,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	redisMu.Lock()
	redisClient = rdb
	redisMu.Unlock()
	log.Printf("Connected to Redis at %s", addr)
	return rdb, nil
}

// GetRedisClient returns the shared Redis client (nil when Redis is not connected).
func GetRedisClient() *redis.Client {
	redisMu.RLock()
	defer redisMu.RUnlock()
	return redisClient
}
