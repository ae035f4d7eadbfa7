package service

import (
	"errors"

	"text2sql-console/internal/repository"
	"text2sql-console/internal/utils"
)

// backendFailure turns a repository error into the AppError handlers answer
// with. The backend's own message is kept when it gave one.
func backendFailure(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, repository.ErrDataSourceNotFound) {
		return utils.NewErrorBuilder(utils.ErrCodeDataSourceNotFound).WithCause(err).Build()
	}

	var backendErr *repository.BackendError
	if errors.As(err, &backendErr) {
		code := utils.ErrCodeBackendUnavailable
		if errors.Is(err, repository.ErrBackendRejected) {
			code = utils.ErrCodeBackendRejected
		}
		return utils.NewBackendError(code, err, backendErr.ServerMessage())
	}

	return utils.NewBackendError(utils.ErrCodeBackendUnavailable, err, err.Error())
}
