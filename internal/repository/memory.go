package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"sleepwise/internal/domain"
)

// MemoryProfilesRepository 用于本地联调和测试（STORE_BACKEND=memory）
// 按 uid 唯一，与 users 表的唯一约束一致
type MemoryProfilesRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile // uid -> profile
}

func NewMemoryProfilesRepository() *MemoryProfilesRepository {
	return &MemoryProfilesRepository{profiles: map[string]domain.Profile{}}
}

var _ ProfilesRepository = (*MemoryProfilesRepository)(nil)

func (r *MemoryProfilesRepository) GetProfile(_ context.Context, uid string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryProfilesRepository) CreateProfile(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UID]; ok {
		return ErrDuplicate
	}
	r.profiles[p.UID] = *p
	return nil
}

func (r *MemoryProfilesRepository) UpdateProfile(_ context.Context, uid string, patch domain.ProfilePatch) (*domain.Profile, error) {
	if patch.Empty() {
		return nil, errors.New("empty profile patch")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&p)
	r.profiles[uid] = p
	return &p, nil
}

// MemoryInsightsRepository 内存版 insights，按 uid 分组并保持 id 升序
type MemoryInsightsRepository struct {
	mu       sync.RWMutex
	byUID    map[string][]domain.Insight
	ids      map[string]struct{}
	failNext error // 测试用：下一次写入返回该错误
}

func NewMemoryInsightsRepository() *MemoryInsightsRepository {
	return &MemoryInsightsRepository{
		byUID: map[string][]domain.Insight{},
		ids:   map[string]struct{}{},
	}
}

var _ InsightsRepository = (*MemoryInsightsRepository)(nil)

// FailNextWrite makes the next write return err.
func (r *MemoryInsightsRepository) FailNextWrite(err error) {
	r.mu.Lock()
	r.failNext = err
	r.mu.Unlock()
}

func (r *MemoryInsightsRepository) CreateInsight(ctx context.Context, in *domain.Insight) error {
	written, err := r.CreateInsightIfAbsent(ctx, in)
	if err != nil {
		return err
	}
	if !written {
		return ErrDuplicate
	}
	return nil
}

func (r *MemoryInsightsRepository) CreateInsightIfAbsent(_ context.Context, in *domain.Insight) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return false, err
	}
	if _, ok := r.ids[in.ID]; ok {
		return false, nil
	}
	r.ids[in.ID] = struct{}{}
	list := append(r.byUID[in.UID], *in)
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	r.byUID[in.UID] = list
	return true, nil
}

func (r *MemoryInsightsRepository) ListInsights(_ context.Context, uid, afterID string, limit int) ([]*domain.Insight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byUID[uid]
	start := sort.Search(len(list), func(i int) bool { return list[i].ID > afterID })
	out := make([]*domain.Insight, 0, limit)
	for i := start; i < len(list) && len(out) < limit; i++ {
		in := list[i]
		out = append(out, &in)
	}
	return out, nil
}

// Count returns the number of stored records for uid.
func (r *MemoryInsightsRepository) Count(uid string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUID[uid])
}
