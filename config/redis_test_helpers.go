package config

import "github.com/redis/go-redis/v9"

// SetRedisClientForTest sets the Redis client for testing purposes.
// This function is only available for testing and should not be used in production code.
func SetRedisClientForTest(client *redis.Client) {
	redisMu.Lock()
	redisClient = client
	redisMu.Unlock()
}
