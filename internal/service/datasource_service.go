package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"text2sql-console/internal/middleware"
	"text2sql-console/internal/model"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/utils"
)

type DataSourceService interface {
	ListDataSources(ctx context.Context) ([]*model.DataSourceProfile, error)
	GetDataSource(ctx context.Context, id string) (*model.DataSourceProfile, error)
	CreateDataSource(ctx context.Context, profile *model.DataSourceProfile) (*model.DataSourceProfile, error)
	UpdateDataSource(ctx context.Context, id string, profile *model.DataSourceProfile) (*model.DataSourceProfile, error)
	DeleteDataSource(ctx context.Context, id string) error
	TestConnection(ctx context.Context, profile *model.DataSourceProfile) (*model.ConnectionTestResult, error)
	ActivateDataSource(ctx context.Context, id string, active bool) error
	CheckStatus(ctx context.Context, id string) (*model.ConnectionStatus, error)
	GetDataSourceStats(ctx context.Context) (map[string]any, error)
}

type dataSourceService struct {
	repo      repository.DataSourceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDataSourceService creates a new instance of DataSourceService
func NewDataSourceService(repo repository.DataSourceRepository, logger *zap.Logger) DataSourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dataSourceService{
		repo:      repo,
		validator: validator.New(),
		logger:    logger,
	}
}

func (s *dataSourceService) ListDataSources(ctx context.Context) ([]*model.DataSourceProfile, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, backendFailure(err)
	}
	return profiles, nil
}

func (s *dataSourceService) GetDataSource(ctx context.Context, id string) (*model.DataSourceProfile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).WithMessage("data source id is required").Build()
	}

	profile, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, backendFailure(err)
	}
	return profile, nil
}

// CreateDataSource stores profile as the only profile. The backend keeps a
// single active data source, so every existing profile is deleted first.
func (s *dataSourceService) CreateDataSource(ctx context.Context, profile *model.DataSourceProfile) (*model.DataSourceProfile, error) {
	profile.ApplyDefaults()
	if profile.ID == "" {
		profile.ID = utils.GenerateDataSourceID()
	}
	if err := s.validate(profile); err != nil {
		return nil, err
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, backendFailure(err)
	}
	for _, old := range existing {
		if err := s.repo.Delete(ctx, old.ID); err != nil {
			return nil, backendFailure(err)
		}
		s.logger.Info("Replaced data source", zap.String("datasource_id", old.ID), zap.String("name", old.Name))
	}

	id, err := s.repo.Create(ctx, profile)
	if err != nil {
		return nil, backendFailure(err)
	}
	profile.ID = id
	if profile.Status == "" {
		profile.Status = model.DataSourceStatusPendingConnection
	}

	s.logger.Info("Data source created", zap.String("datasource_id", id), zap.String("type", string(profile.Type)))
	return profile, nil
}

func (s *dataSourceService) UpdateDataSource(ctx context.Context, id string, profile *model.DataSourceProfile) (*model.DataSourceProfile, error) {
	if profile.ID == "" {
		profile.ID = id
	}
	if profile.ID != id {
		return nil, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
			WithMessage("profile id does not match the path").
			WithDetails(profile.ID + " != " + id).
			Build()
	}

	profile.ApplyDefaults()
	if err := s.validate(profile); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, backendFailure(err)
	}
	return profile, nil
}

func (s *dataSourceService) DeleteDataSource(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return backendFailure(err)
	}
	middleware.UpdateDataSourceUp(id, false)
	return nil
}

// TestConnection tries an unsaved profile. A failed connection is a result
// with Success false, not an error.
func (s *dataSourceService) TestConnection(ctx context.Context, profile *model.DataSourceProfile) (*model.ConnectionTestResult, error) {
	profile.ApplyDefaults()
	if err := s.validate(profile); err != nil {
		return nil, err
	}

	result, err := s.repo.Test(ctx, profile)
	if err != nil {
		return nil, backendFailure(err)
	}
	return result, nil
}

func (s *dataSourceService) ActivateDataSource(ctx context.Context, id string, active bool) error {
	if err := s.repo.Activate(ctx, id, active); err != nil {
		return backendFailure(err)
	}
	return nil
}

func (s *dataSourceService) CheckStatus(ctx context.Context, id string) (*model.ConnectionStatus, error) {
	status, err := s.repo.Status(ctx, id)
	if err != nil {
		return nil, backendFailure(err)
	}
	middleware.UpdateDataSourceUp(id, status.Connected)
	return status, nil
}

func (s *dataSourceService) GetDataSourceStats(ctx context.Context) (map[string]any, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, backendFailure(err)
	}
	return stats, nil
}

func (s *dataSourceService) validate(profile *model.DataSourceProfile) error {
	if err := s.validator.Struct(profile); err != nil {
		return utils.NewValidationError("Invalid data source profile", err.Error())
	}
	return nil
}
