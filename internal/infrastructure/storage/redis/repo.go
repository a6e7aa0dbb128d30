package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
)

// Cache 最新报价缓存 + 提示消息总线
// 外部消费者读 hash 拿最新价差，订阅 pub/sub 或 stream 拿显著变化提示
type Cache struct {
	rdb            *redis.Client
	ttl            time.Duration
	keySpreads     string // prefix + ":spreads"
	advisoryStream string
	advisoryChan   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, advisoryStream, advisoryChan string) *Cache {
	if strings.TrimSpace(advisoryStream) == "" {
		advisoryStream = prefix + ":advisories"
	}
	if strings.TrimSpace(advisoryChan) == "" {
		advisoryChan = prefix + ":advisories:pub"
	}
	return &Cache{
		rdb:            rdb,
		ttl:            ttl,
		keySpreads:     prefix + ":spreads",
		advisoryStream: advisoryStream,
		advisoryChan:   advisoryChan,
	}
}

func (c *Cache) UpsertLatestSpreads(ctx context.Context, quotes []model.SpreadQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	// Hash: field = "BTC/USDT|binance|okx" -> json
	pipe := c.rdb.Pipeline()
	for _, q := range quotes {
		b, _ := json.Marshal(q)
		pipe.HSet(ctx, c.keySpreads, q.Key(), string(b))
	}
	if c.ttl > 0 {
		pipe.Expire(ctx, c.keySpreads, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Cache) InsertAdvisory(ctx context.Context, a model.Advisory) error {
	// 1) Stream: XADD <stream> * key prev current ...
	_, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.advisoryStream,
		Values: map[string]any{
			"key":        a.Key,
			"previous":   a.Previous,
			"current":    a.Current,
			"change_abs": a.ChangeAbs,
			"change_pct": a.ChangePct,
			"ts_ms":      a.GeneratedAt,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	b, _ := json.Marshal(a)
	return c.rdb.Publish(ctx, c.advisoryChan, string(b)).Err()
}

var _ port.SpreadCache = (*Cache)(nil)
