// Package events fans out insight.created notifications after a record is persisted.
package events

import (
	"context"

	"sleepwise/internal/domain"
)

// Publisher 发布失败只影响通知，不影响已落库的记录
type Publisher interface {
	Publish(ctx context.Context, ev domain.InsightEvent) error
	Close() error
}

// Noop 未配置事件输出时使用
type Noop struct{}

func (Noop) Publish(context.Context, domain.InsightEvent) error { return nil }
func (Noop) Close() error                                       { return nil }

var _ Publisher = Noop{}
