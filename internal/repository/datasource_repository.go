package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"text2sql-console/internal/model"
)

type dataSourceRepository struct {
	client *BackendClient
}

// NewDataSourceRepository creates a new instance of DataSourceRepository
func NewDataSourceRepository(client *BackendClient) DataSourceRepository {
	return &dataSourceRepository{client: client}
}

func (r *dataSourceRepository) path(id, suffix string) string {
	return r.client.dataSourcePath("/%s%s", url.PathEscape(id), suffix)
}

// List retrieves all profiles from {"success": true, "data": [...]}
func (r *dataSourceRepository) List(ctx context.Context) ([]*model.DataSourceProfile, error) {
	body, err := r.client.getJSON(ctx, "datasource-list", r.client.dataSourcePath(""))
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, ErrMalformedPayload
	}

	profiles := []*model.DataSourceProfile{}
	if err := json.Unmarshal([]byte(data.Raw), &profiles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return profiles, nil
}

// Get retrieves a profile by its id. The backend answers with the bare
// profile, but an enveloped one is accepted too.
func (r *dataSourceRepository) Get(ctx context.Context, id string) (*model.DataSourceProfile, error) {
	body, err := r.client.getJSON(ctx, "datasource-get", r.path(id, ""))
	if err != nil {
		return nil, notFound(err)
	}

	raw := body
	if data := gjson.GetBytes(body, "data"); data.IsObject() {
		raw = []byte(data.Raw)
	}

	var profile model.DataSourceProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &profile, nil
}

// Create stores a new profile and returns the id the backend assigned
func (r *dataSourceRepository) Create(ctx context.Context, profile *model.DataSourceProfile) (string, error) {
	body, err := r.client.postJSON(ctx, "datasource-create", r.client.dataSourcePath(""), profile)
	if err != nil {
		return "", err
	}

	if id := gjson.GetBytes(body, "data.id"); id.Type == gjson.String && id.Str != "" {
		return id.Str, nil
	}
	return profile.ID, nil
}

// Update replaces an existing profile
func (r *dataSourceRepository) Update(ctx context.Context, profile *model.DataSourceProfile) error {
	_, err := r.client.putJSON(ctx, "datasource-update", r.path(profile.ID, ""), profile)
	return notFound(err)
}

// Delete removes a profile
func (r *dataSourceRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.delete(ctx, "datasource-delete", r.path(id, ""))
	return notFound(err)
}

// Test tries a connection. A failed connection comes back as success
// false with a 200 and is a result, not an error.
func (r *dataSourceRepository) Test(ctx context.Context, profile *model.DataSourceProfile) (*model.ConnectionTestResult, error) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	body, err := r.client.callUnchecked(ctx, "datasource-test", http.MethodPost,
		r.client.dataSourcePath("/test"), bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	return &model.ConnectionTestResult{
		Success: gjson.GetBytes(body, "success").Bool(),
		Message: envelopeMessage(body),
	}, nil
}

// Activate switches a profile on or off
func (r *dataSourceRepository) Activate(ctx context.Context, id string, active bool) error {
	path := r.path(id, "/activate") + "?active=" + strconv.FormatBool(active)
	_, err := r.client.call(ctx, "datasource-activate", http.MethodPost, path, nil, "")
	return notFound(err)
}

// Status reports whether a profile's connection is up
func (r *dataSourceRepository) Status(ctx context.Context, id string) (*model.ConnectionStatus, error) {
	body, err := r.client.getJSON(ctx, "datasource-status", r.path(id, "/status"))
	if err != nil {
		return nil, err
	}

	var status model.ConnectionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &status, nil
}

// Stats returns the backend's pool statistics as an opaque map
func (r *dataSourceRepository) Stats(ctx context.Context) (map[string]any, error) {
	body, err := r.client.getJSON(ctx, "datasource-stats", r.client.dataSourcePath("/stats"))
	if err != nil {
		return nil, err
	}

	stats := map[string]any{}
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return stats, nil
}

// notFound maps a 404 from the backend to ErrDataSourceNotFound
func notFound(err error) error {
	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrDataSourceNotFound, backendErr.ServerMessage())
	}
	return err
}
