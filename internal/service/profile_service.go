package service

import (
	"context"
	"errors"

	"sleepwise/internal/apperr"
	"sleepwise/internal/domain"
	"sleepwise/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MsgUserNotFound 身份没有对应的 profile
const MsgUserNotFound = "user not found"

// ProfileService 用户 profile 服务接口
type ProfileService interface {
	// Get 获取当前身份的 profile
	Get(ctx context.Context, uid string) (*domain.Profile, error)

	// Create 为当前身份创建 profile，分配新 ID
	Create(ctx context.Context, uid string, p *domain.Profile) (*domain.Profile, error)

	// Update 部分更新，返回更新后的 profile
	Update(ctx context.Context, uid string, patch domain.ProfilePatch) (*domain.Profile, error)
}

type profileService struct {
	repo   repository.ProfilesRepository
	logger *zap.Logger
}

// NewProfileService 创建 ProfileService 实例
func NewProfileService(repo repository.ProfilesRepository, logger *zap.Logger) ProfileService {
	return &profileService{repo: repo, logger: logger}
}

func (s *profileService) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	p, err := s.repo.GetProfile(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		s.logger.Error("Failed to load profile", zap.String("uid", uid), zap.Error(err))
		return nil, apperr.Storage("failed to load profile", err)
	}
	return p, nil
}

func (s *profileService) Create(ctx context.Context, uid string, p *domain.Profile) (*domain.Profile, error) {
	created := *p
	created.ID = uuid.NewString()
	created.UID = uid
	if err := s.repo.CreateProfile(ctx, &created); err != nil {
		// 同一身份重复创建同样按存储错误处理
		s.logger.Error("Failed to create profile",
			zap.String("uid", uid),
			zap.Bool("duplicate", errors.Is(err, repository.ErrDuplicate)),
			zap.Error(err),
		)
		return nil, apperr.Storage("failed to create profile", err)
	}
	s.logger.Info("Profile created", zap.String("uid", uid), zap.String("profile_id", created.ID))
	return &created, nil
}

func (s *profileService) Update(ctx context.Context, uid string, patch domain.ProfilePatch) (*domain.Profile, error) {
	p, err := s.repo.UpdateProfile(ctx, uid, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		s.logger.Error("Failed to update profile", zap.String("uid", uid), zap.Error(err))
		return nil, apperr.Storage("failed to update profile", err)
	}
	return p, nil
}
