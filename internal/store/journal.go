package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sleepwise/internal/domain"
)

// 提交流水的状态
const (
	StateStaged = "staged" // 已收到，尚未拿到预测结果
	StateScored = "scored" // 已有预测结果，尚未落库
)

const journalKeyPrefix = "journal:"

// JournalEntry 一次提交在落库前的暂存记录
type JournalEntry struct {
	ID       string               `json:"id"`
	UID      string               `json:"uid"`
	State    string               `json:"state"`
	StagedAt time.Time            `json:"staged_at"`
	Metrics  domain.HealthMetrics `json:"metrics"`
	Insight  *domain.Insight      `json:"insight,omitempty"`
}

// Journal records submissions between validation and persistence so that a
// scored record lost to a storage failure can be replayed later.
type Journal interface {
	Stage(ctx context.Context, id, uid string, m domain.HealthMetrics) error
	MarkScored(ctx context.Context, in *domain.Insight) error
	Clear(ctx context.Context, id string) error
	// Pending returns every entry still in the journal, oldest first.
	Pending(ctx context.Context) ([]JournalEntry, error)
}

// KVJournal 基于 KV（Redis）的 Journal 实现，条目带 TTL
type KVJournal struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

func NewKVJournal(kv KV, ttl time.Duration) *KVJournal {
	return &KVJournal{kv: kv, ttl: ttl, now: time.Now}
}

var _ Journal = (*KVJournal)(nil)

func journalKey(id string) string { return journalKeyPrefix + id }

func (j *KVJournal) put(ctx context.Context, e *JournalEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}
	if err := j.kv.Set(ctx, journalKey(e.ID), string(b), j.ttl); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	return nil
}

func (j *KVJournal) get(ctx context.Context, id string) (*JournalEntry, error) {
	raw, err := j.kv.Get(ctx, journalKey(id))
	if err != nil {
		return nil, err
	}
	var e JournalEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("failed to decode journal entry %s: %w", id, err)
	}
	return &e, nil
}

func (j *KVJournal) Stage(ctx context.Context, id, uid string, m domain.HealthMetrics) error {
	return j.put(ctx, &JournalEntry{
		ID:       id,
		UID:      uid,
		State:    StateStaged,
		StagedAt: j.now().UTC(),
		Metrics:  m,
	})
}

func (j *KVJournal) MarkScored(ctx context.Context, in *domain.Insight) error {
	e, err := j.get(ctx, in.ID)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			return err
		}
		// 条目已过期：按当前记录重建
		e = &JournalEntry{ID: in.ID, UID: in.UID, StagedAt: j.now().UTC()}
	}
	e.State = StateScored
	e.Insight = in
	return j.put(ctx, e)
}

func (j *KVJournal) Clear(ctx context.Context, id string) error {
	if err := j.kv.Delete(ctx, journalKey(id)); err != nil {
		return fmt.Errorf("failed to clear journal entry: %w", err)
	}
	return nil
}

func (j *KVJournal) Pending(ctx context.Context) ([]JournalEntry, error) {
	keys, err := j.kv.ScanKeys(ctx, journalKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}
	out := make([]JournalEntry, 0, len(keys))
	for _, key := range keys {
		e, err := j.get(ctx, strings.TrimPrefix(key, journalKeyPrefix))
		if err != nil {
			if errors.Is(err, ErrMiss) {
				continue
			}
			return nil, err
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StagedAt.Before(out[b].StagedAt) })
	return out, nil
}

// NoopJournal 未启用 Redis 时使用
type NoopJournal struct{}

var _ Journal = NoopJournal{}

func (NoopJournal) Stage(context.Context, string, string, domain.HealthMetrics) error { return nil }
func (NoopJournal) MarkScored(context.Context, *domain.Insight) error                 { return nil }
func (NoopJournal) Clear(context.Context, string) error                               { return nil }
func (NoopJournal) Pending(context.Context) ([]JournalEntry, error)                   { return nil, nil }
