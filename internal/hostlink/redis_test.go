package hostlink

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstorage "github.com/taoyao-code/radio-hub/internal/storage/redis"
)

// 需要本地 Redis；不可达时跳过
func redisClient(t *testing.T) *redisstorage.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15, DialTimeout: 200 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return redisstorage.Wrap(rdb)
}

func TestRedisLink(t *testing.T) {
	cli := redisClient(t)
	ctx := context.Background()
	keys := RedisKeys{
		EventsChannel: "test:hub:events",
		EventsList:    "test:hub:events:recent",
		EventsMaxLen:  2,
		CommandsKey:   "test:hub:commands",
	}
	require.NoError(t, cli.Del(ctx, keys.EventsList, keys.CommandsKey).Err())
	l := NewRedis(cli, keys)
	defer l.Close()

	t.Run("出站行保留最近窗口", func(t *testing.T) {
		for _, s := range []string{"a", "b", "c"} {
			require.NoError(t, l.WriteLine([]byte(s)))
		}
		got, err := cli.LRange(ctx, keys.EventsList, 0, -1).Result()
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, got)
	})

	t.Run("命令按顺序读取", func(t *testing.T) {
		require.NoError(t, cli.RPush(ctx, keys.CommandsKey, "PING", "IDS").Err())
		line, err := readLine(t, l)
		require.NoError(t, err)
		assert.Equal(t, "PING", string(line))
		line, err = readLine(t, l)
		require.NoError(t, err)
		assert.Equal(t, "IDS", string(line))
	})

	t.Run("关闭后停止读取", func(t *testing.T) {
		require.NoError(t, l.Close())
		_, err := readLine(t, l)
		assert.ErrorIs(t, err, ErrClosed)
	})
}
