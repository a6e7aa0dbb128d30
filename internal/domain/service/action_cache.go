package service

import (
	"sync"
	"time"
)

// RecentActionWindow 同一键重复动作的默认冷却窗口
const RecentActionWindow = 10 * time.Minute

// RecentActionCache 记录最近的开/平仓动作，后台自动模式用它防止同一价差反复开平
type RecentActionCache struct {
	mu      sync.Mutex
	window  time.Duration
	actions map[string]time.Time // key -> last action time
}

func NewRecentActionCache(window time.Duration) *RecentActionCache {
	if window <= 0 {
		window = RecentActionWindow
	}
	return &RecentActionCache{
		window:  window,
		actions: make(map[string]time.Time),
	}
}

// Mark 记录一次动作
func (c *RecentActionCache) Mark(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[key] = now
}

// Recently 窗口内是否已有动作；顺带清理过期项
func (c *RecentActionCache) Recently(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, at := range c.actions {
		if now.Sub(at) > c.window {
			delete(c.actions, k)
		}
	}

	at, ok := c.actions[key]
	return ok && now.Sub(at) <= c.window
}
