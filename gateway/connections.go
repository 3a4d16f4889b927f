package gateway

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis"
	"github.com/rs/zerolog/log"

	"github.com/sensoriq/framegate-go/common"
	"github.com/sensoriq/framegate-go/network"
	"github.com/sensoriq/framegate-go/util"
)

// staleAfter is how long a table entry stays credible without an update
const staleAfter = 60 * time.Second

var (
	HostIP string
)

func init() {
	HostIP = os.Getenv("IP")
	if HostIP == "" {
		HostIP = util.GetLocalIP()
	}
}

// RedisReporter mirrors the connection registry into redis so other
// instances and ops tooling can see who is connected where.
type RedisReporter struct {
	Client *redis.Client
}

// ConnectionMade record a new connection in the table
func (r *RedisReporter) ConnectionMade(c *network.Connection) {
	UpdateConn(r.Client, c.ID())
}

// ConnectionLost drop a connection from the table
func (r *RedisReporter) ConnectionLost(c *network.Connection, err error) {
	RemoveConn(r.Client, c.ID())
}

// UpdateConn update a connection's info in redis
func UpdateConn(redisClient *redis.Client, id string) {
	pipe := redisClient.Pipeline()
	curr := time.Now().Unix()

	v := fmt.Sprintf("%v:%v", curr, HostIP)
	pipe.HSet(common.RedisKeyConnectionTable, id, v)

	reverseKey := fmt.Sprintf("%s:%v", common.RedisKeyHostConnections, HostIP)
	pipe.HSet(reverseKey, id, curr)

	_, err := pipe.Exec()
	if err != nil {
		log.Error().Msgf("redis error: %s", err)
	}
}

// RemoveConn delete a connection's info from redis
func RemoveConn(redisClient *redis.Client, id string) {
	pipe := redisClient.Pipeline()
	pipe.HDel(common.RedisKeyConnectionTable, id)

	reverseKey := fmt.Sprintf("%s:%v", common.RedisKeyHostConnections, HostIP)
	pipe.HDel(reverseKey, id)

	_, err := pipe.Exec()
	if err != nil {
		log.Error().Msgf("redis error: %s", err)
	}
}

// ReportAlive send alive information to redis until the context ends
func ReportAlive(ctx context.Context, redisClient *redis.Client) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		curr := time.Now().Unix()
		cmd := redisClient.HSet(common.RedisKeyAliveHosts, HostIP, curr)
		if _, err := cmd.Result(); err != nil {
			log.Error().Msgf("redis error: %s", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// GetConnections get all connections, optionally dropping stale entries
func GetConnections(redisClient *redis.Client, filterAlive bool) (map[string]string, error) {
	curr := time.Now()

	result, err := redisClient.HGetAll(common.RedisKeyConnectionTable).Result()
	if err != nil {
		return nil, err
	}
	if !filterAlive {
		return result, nil
	}

	aliveConns := make(map[string]string)
	var staleConns []string
	for key, val := range result {
		ts := strings.Split(val, ":")[0]
		i, perr := strconv.ParseInt(ts, 10, 64)
		if perr != nil {
			staleConns = append(staleConns, key)
			continue
		}
		if curr.Sub(time.Unix(i, 0)) < staleAfter {
			aliveConns[key] = val
		} else {
			staleConns = append(staleConns, key)
		}
	}
	if len(staleConns) > 0 {
		redisClient.HDel(common.RedisKeyConnectionTable, staleConns...)
	}
	return aliveConns, nil
}

// GetConnectionsByHost get connections served by one gateway instance
func GetConnectionsByHost(redisClient *redis.Client, host string, filterAlive bool) (map[string]string, error) {
	curr := time.Now()

	reverseKey := fmt.Sprintf("%s:%v", common.RedisKeyHostConnections, host)
	result, err := redisClient.HGetAll(reverseKey).Result()
	if err != nil {
		return nil, err
	}
	if !filterAlive {
		return result, nil
	}

	aliveConns := make(map[string]string)
	for key, val := range result {
		i, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			continue
		}
		if curr.Sub(time.Unix(i, 0)) < staleAfter {
			aliveConns[key] = val
		}
	}
	return aliveConns, nil
}

// GetHosts get all gateway hosts
func GetHosts(redisClient *redis.Client, filterAlive bool) (map[string]string, error) {
	curr := time.Now()

	result, err := redisClient.HGetAll(common.RedisKeyAliveHosts).Result()
	if err != nil {
		return nil, err
	}
	if !filterAlive {
		return result, nil
	}

	aliveHosts := make(map[string]string)
	for key, val := range result {
		i, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			continue
		}
		if curr.Sub(time.Unix(i, 0)) < staleAfter {
			aliveHosts[key] = val
		}
	}
	return aliveHosts, nil
}
