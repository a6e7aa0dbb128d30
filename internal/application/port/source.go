package port

import (
	"context"

	"spreadmaster/internal/domain/model"
)

// SpreadSource 状态提供方：每次轮询返回完整快照（报价 + 当前过滤集合）
type SpreadSource interface {
	Poll(ctx context.Context) (*model.Snapshot, error)
}
