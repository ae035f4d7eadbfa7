package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"text2sql-console/internal/model"
	"text2sql-console/internal/utils"
)

func validProfile() *model.DataSourceProfile {
	password := "secret"
	return &model.DataSourceProfile{
		Name:     "shop",
		Type:     model.DatabaseTypeMySQL,
		Host:     "localhost",
		Database: "shop",
		Username: "root",
		Password: &password,
	}
}

func TestCreateDataSourceReplacesExisting(t *testing.T) {
	repo := newFakeDataSources(&model.DataSourceProfile{ID: "ds-old", Name: "crm"})
	svc := NewDataSourceService(repo, nil)

	created, err := svc.CreateDataSource(context.Background(), validProfile())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(created.ID, "ds-"))
	require.Equal(t, 3306, created.Port)
	require.Equal(t, model.DefaultMaximumPoolSize, created.MaximumPoolSize)
	require.Equal(t, model.DataSourceStatusPendingConnection, created.Status)

	require.Equal(t, []string{"list", "delete ds-old", "create " + created.ID}, repo.recorded())
}

func TestCreateDataSourceValidation(t *testing.T) {
	repo := newFakeDataSources()
	svc := NewDataSourceService(repo, nil)

	profile := validProfile()
	profile.Host = ""
	_, err := svc.CreateDataSource(context.Background(), profile)
	requireCode(t, err, utils.ErrCodeValidationFailed)

	profile = validProfile()
	profile.Type = "mongodb"
	_, err = svc.CreateDataSource(context.Background(), profile)
	requireCode(t, err, utils.ErrCodeValidationFailed)

	require.Empty(t, repo.recorded())
}

func TestUpdateDataSourceIDMismatch(t *testing.T) {
	repo := newFakeDataSources()
	svc := NewDataSourceService(repo, nil)

	profile := validProfile()
	profile.ID = "ds-a"
	_, err := svc.UpdateDataSource(context.Background(), "ds-b", profile)
	requireCode(t, err, utils.ErrCodeInvalidRequest)

	profile = validProfile()
	updated, err := svc.UpdateDataSource(context.Background(), "ds-b", profile)
	require.NoError(t, err)
	require.Equal(t, "ds-b", updated.ID)
	require.Equal(t, []string{"update ds-b"}, repo.recorded())
}

func TestGetDataSourceNotFound(t *testing.T) {
	svc := NewDataSourceService(newFakeDataSources(), nil)

	_, err := svc.GetDataSource(context.Background(), "ds-missing")
	requireCode(t, err, utils.ErrCodeDataSourceNotFound)

	_, err = svc.GetDataSource(context.Background(), " ")
	requireCode(t, err, utils.ErrCodeInvalidRequest)
}

func TestTestConnectionFailureIsResult(t *testing.T) {
	svc := NewDataSourceService(newFakeDataSources(), nil)

	result, err := svc.TestConnection(context.Background(), validProfile())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "连接测试失败，请检查配置", result.Message)
}

func TestCheckStatus(t *testing.T) {
	repo := newFakeDataSources()
	svc := NewDataSourceService(repo, nil)

	status, err := svc.CheckStatus(context.Background(), "ds-1")
	require.NoError(t, err)
	require.True(t, status.Connected)
	require.Equal(t, []string{"status ds-1"}, repo.recorded())
}
