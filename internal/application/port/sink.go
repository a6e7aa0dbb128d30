package port

import "spreadmaster/internal/domain/model"

// Sink 视图消费端：终端、WebSocket 推送等
// 每次渲染后引擎把不可变视图推给所有 sink
type Sink interface {
	PublishBoard(v *model.BoardView) error
}
