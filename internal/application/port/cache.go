package port

import (
	"context"

	"spreadmaster/internal/domain/model"
)

// SpreadCache 最新报价缓存 + 提示消息总线（可选，Redis 实现）
type SpreadCache interface {
	// UpsertLatestSpreads 批量写入最新报价，供外部消费者读取
	UpsertLatestSpreads(ctx context.Context, quotes []model.SpreadQuote) error

	// InsertAdvisory 把一条显著变化提示写入流并广播
	InsertAdvisory(ctx context.Context, a model.Advisory) error
}
