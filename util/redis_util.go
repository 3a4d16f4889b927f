package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/rs/zerolog/log"
)

// GetRedisClient build a client with default timeouts
func GetRedisClient(host string, port int, password string, db int) *redis.Client {
	return GetRedisClientWithTimeOut(host, port, password, db, 0)
}

// GetRedisClientWithTimeOut build a client with an explicit read timeout in
// milliseconds
func GetRedisClientWithTimeOut(host string, port int, password string, db int, readTimeout int) *redis.Client {
	redisAddr := fmt.Sprintf("%v:%v", host, port)
	options := &redis.Options{
		Addr:       redisAddr,
		Password:   password,
		DB:         db,
		MaxRetries: 3,
	}
	if readTimeout > 0 {
		options.ReadTimeout = time.Duration(readTimeout) * time.Millisecond
	}
	redisClient := redis.NewClient(options)
	log.Info().Msgf("connect to redis at %v", redisAddr)
	return redisClient
}

// ScanKeys collect all keys matching searchKey without blocking the server
// the way KEYS would. SCAN may return duplicates, so results are de-duped.
func ScanKeys(searchKey string, redisClient *redis.Client) ([]string, error) {
	if searchKey == "" {
		return nil, errors.New("empty search key")
	}

	var cursor uint64
	seen := make(map[string]struct{})
	var resultList []string
	for {
		scanResult, next, err := redisClient.Scan(cursor, searchKey, 1000).Result()
		if err != nil {
			return resultList, err
		}
		for _, key := range scanResult {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			resultList = append(resultList, key)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return resultList, nil
}
