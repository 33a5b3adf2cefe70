package service

import (
	"context"
	"errors"
	"time"

	"sleepwise/internal/apperr"
	"sleepwise/internal/domain"
	"sleepwise/internal/events"
	"sleepwise/internal/metrics"
	"sleepwise/internal/prediction"
	"sleepwise/internal/repository"
	"sleepwise/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Predictor 预测服务客户端接口（prediction.Client 实现，测试用 mock）
type Predictor interface {
	Predict(ctx context.Context, req prediction.Request) (domain.Prediction, error)
}

// InsightService 睡眠记录服务接口
type InsightService interface {
	// Submit 补全人口学字段 -> 调用预测服务 -> 落库 -> 发布事件
	Submit(ctx context.Context, uid string, m domain.HealthMetrics) (*domain.Insight, error)

	// List 游标分页，key 为上一页最后一条记录的 id
	List(ctx context.Context, uid, key string) (*domain.InsightPage, error)

	// Export 按游标翻页取回该身份的全部记录
	Export(ctx context.Context, uid string) ([]*domain.Insight, error)

	// Replay 把 journal 中已评分但未落库的记录补写入库
	Replay(ctx context.Context) (*ReplayResult, error)
}

// ReplayResult replay 的统计
type ReplayResult struct {
	Replayed int `json:"replayed"` // 本次写入
	Existing int `json:"existing"` // 库中已存在，仅清理 journal
	Staged   int `json:"staged"`   // 尚未评分，保留
	Failed   int `json:"failed"`
}

// InsightDeps InsightService 依赖；Journal / Publisher / Metrics 可为空
type InsightDeps struct {
	Profiles  repository.ProfilesRepository
	Insights  repository.InsightsRepository
	Predictor Predictor
	Journal   store.Journal
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type insightService struct {
	profiles  repository.ProfilesRepository
	insights  repository.InsightsRepository
	predictor Predictor
	journal   store.Journal
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger

	now   func() time.Time
	newID func() (uuid.UUID, error)
}

// NewInsightService 创建 InsightService 实例
func NewInsightService(d InsightDeps) InsightService {
	s := &insightService{
		profiles:  d.Profiles,
		insights:  d.Insights,
		predictor: d.Predictor,
		journal:   d.Journal,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		logger:    d.Logger,
		now:       time.Now,
		newID:     uuid.NewV7,
	}
	if s.journal == nil {
		s.journal = store.NoopJournal{}
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *insightService) Submit(ctx context.Context, uid string, m domain.HealthMetrics) (*domain.Insight, error) {
	in, err := s.submit(ctx, uid, m)
	if err != nil {
		s.metrics.RecordSubmission(outcomeOf(err))
		return nil, err
	}
	s.metrics.RecordSubmission(metrics.OutcomeCreated)
	return in, nil
}

func (s *insightService) submit(ctx context.Context, uid string, m domain.HealthMetrics) (*domain.Insight, error) {
	log := s.logger.With(zap.String("uid", uid))

	// 1. 补全人口学字段（四项齐全时不查 profile）
	var profile *domain.Profile
	if !m.HasDemographics() {
		p, err := s.profiles.GetProfile(ctx, uid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.NotFound(MsgUserNotFound)
			}
			log.Error("Failed to load profile for back-fill", zap.Error(err))
			return nil, apperr.Storage("failed to load profile", err)
		}
		profile = p
	}
	demographics := m.ResolveDemographics(profile)

	id, err := s.newID()
	if err != nil {
		return nil, apperr.Storage("failed to allocate record id", err)
	}
	recordID := id.String()
	log = log.With(zap.String("insight_id", recordID))

	if err := s.journal.Stage(ctx, recordID, uid, m); err != nil {
		log.Error("Failed to stage submission", zap.Error(err))
		return nil, apperr.Storage("failed to stage submission", err)
	}

	// 2. 预测服务，单次调用
	start := time.Now()
	pred, err := s.predictor.Predict(ctx, prediction.NewRequest(demographics, m))
	s.metrics.RecordPrediction(time.Since(start), err == nil)
	if err != nil {
		log.Error("Prediction failed", zap.Error(err))
		s.clearJournal(ctx, recordID, log)
		return nil, apperr.Upstream("prediction failed", err)
	}

	in := domain.NewInsight(recordID, uid, s.now(), m, pred)
	if err := s.journal.MarkScored(ctx, in); err != nil {
		log.Warn("Failed to mark journal entry scored", zap.Error(err))
	}

	// 3. 落库；失败时 journal 保留已评分条目，等待 replay
	if err := s.insights.CreateInsight(ctx, in); err != nil {
		log.Error("Failed to persist insight", zap.Error(err))
		return nil, apperr.Storage("failed to save insight", err)
	}
	s.clearJournal(ctx, recordID, log)

	log.Info("Insight created",
		zap.Float64("sleep_quality", in.SleepQuality),
		zap.Bool("has_disorder_level", in.DisorderLevel != nil),
	)
	s.publish(ctx, in, log)
	return in, nil
}

func (s *insightService) clearJournal(ctx context.Context, id string, log *zap.Logger) {
	if err := s.journal.Clear(ctx, id); err != nil {
		log.Warn("Failed to clear journal entry", zap.Error(err))
	}
}

func (s *insightService) publish(ctx context.Context, in *domain.Insight, log *zap.Logger) {
	if err := s.publisher.Publish(ctx, domain.NewInsightCreatedEvent(in)); err != nil {
		s.metrics.RecordPublishError()
		log.Warn("Failed to publish insight event", zap.Error(err))
	}
}

func (s *insightService) List(ctx context.Context, uid, key string) (*domain.InsightPage, error) {
	if key != "" {
		if _, err := uuid.Parse(key); err != nil {
			return nil, apperr.Validation(apperr.Issue{Field: "key", Reason: "must be a record id"})
		}
	}
	records, err := s.insights.ListInsights(ctx, uid, key, domain.PageSize)
	if err != nil {
		s.logger.Error("Failed to list insights", zap.String("uid", uid), zap.Error(err))
		return nil, apperr.Storage("failed to list insights", err)
	}
	page := &domain.InsightPage{Results: records}
	if page.Results == nil {
		page.Results = []*domain.Insight{}
	}
	if n := len(records); n > 0 {
		last := records[n-1].ID
		page.LastKey = &last
	}
	return page, nil
}

func (s *insightService) Export(ctx context.Context, uid string) ([]*domain.Insight, error) {
	var all []*domain.Insight
	key := ""
	for {
		page, err := s.List(ctx, uid, key)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if page.LastKey == nil || len(page.Results) < domain.PageSize {
			return all, nil
		}
		key = *page.LastKey
	}
}

func (s *insightService) Replay(ctx context.Context) (*ReplayResult, error) {
	entries, err := s.journal.Pending(ctx)
	if err != nil {
		return nil, apperr.Storage("failed to read journal", err)
	}
	res := &ReplayResult{}
	for _, e := range entries {
		log := s.logger.With(zap.String("insight_id", e.ID), zap.String("uid", e.UID))
		if e.State != store.StateScored || e.Insight == nil {
			res.Staged++
			log.Debug("Skipping unscored journal entry", zap.Time("staged_at", e.StagedAt))
			continue
		}
		written, err := s.insights.CreateInsightIfAbsent(ctx, e.Insight)
		if err != nil {
			res.Failed++
			log.Error("Replay failed", zap.Error(err))
			continue
		}
		s.clearJournal(ctx, e.ID, log)
		if !written {
			res.Existing++
			continue
		}
		res.Replayed++
		s.metrics.RecordSubmission(metrics.OutcomeReplayed)
		log.Info("Insight replayed")
		s.publish(ctx, e.Insight, log)
	}
	return res, nil
}

func outcomeOf(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return metrics.OutcomeNotFound
	case apperr.KindUpstream:
		return metrics.OutcomeUpstream
	case apperr.KindStorage:
		return metrics.OutcomeStorage
	default:
		return metrics.OutcomeUnexpected
	}
}
