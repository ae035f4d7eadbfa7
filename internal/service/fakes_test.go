package service

import (
	"context"
	"sync"
	"sync/atomic"

	"text2sql-console/internal/model"
	"text2sql-console/internal/repository"
)

const usersSchema = "### users\n- `id` BIGINT [主键]\n- `name` VARCHAR(50) [可空]\n"

type fakeConsole struct {
	serverInfo      func(ctx context.Context) (*model.ServerInfo, error)
	fetchSchema     func(ctx context.Context, dataSourceID string) (repository.SchemaPayload, error)
	generateSQL     func(ctx context.Context, req model.Text2SQLRequest) (string, error)
	executeSQL      func(ctx context.Context, sql string) (string, error)
	queryAndExecute func(ctx context.Context, query string) (string, error)
	explainSQL      func(ctx context.Context, req model.ExplainSQLRequest) (string, error)
	submitFeedback  func(ctx context.Context, feedback model.Feedback) (string, error)

	calls atomic.Int32
}

// connectedConsole answers server-info and serves a one-table schema.
func connectedConsole() *fakeConsole {
	return &fakeConsole{
		serverInfo: func(context.Context) (*model.ServerInfo, error) {
			return &model.ServerInfo{Name: "text2sql", Message: "服务运行正常，当前数据库: shop"}, nil
		},
		fetchSchema: func(context.Context, string) (repository.SchemaPayload, error) {
			return repository.ContentPayload{Description: usersSchema}, nil
		},
	}
}

func (f *fakeConsole) ServerInfo(ctx context.Context) (*model.ServerInfo, error) {
	f.calls.Add(1)
	return f.serverInfo(ctx)
}

func (f *fakeConsole) FetchSchema(ctx context.Context, dataSourceID string) (repository.SchemaPayload, error) {
	f.calls.Add(1)
	return f.fetchSchema(ctx, dataSourceID)
}

func (f *fakeConsole) GenerateSQL(ctx context.Context, req model.Text2SQLRequest) (string, error) {
	f.calls.Add(1)
	return f.generateSQL(ctx, req)
}

func (f *fakeConsole) ExecuteSQL(ctx context.Context, sql string) (string, error) {
	f.calls.Add(1)
	return f.executeSQL(ctx, sql)
}

func (f *fakeConsole) QueryAndExecute(ctx context.Context, query string) (string, error) {
	f.calls.Add(1)
	return f.queryAndExecute(ctx, query)
}

func (f *fakeConsole) ExplainSQL(ctx context.Context, req model.ExplainSQLRequest) (string, error) {
	f.calls.Add(1)
	return f.explainSQL(ctx, req)
}

func (f *fakeConsole) SubmitFeedback(ctx context.Context, feedback model.Feedback) (string, error) {
	f.calls.Add(1)
	return f.submitFeedback(ctx, feedback)
}

// fakeDataSources keeps profiles in memory and records the calls made.
type fakeDataSources struct {
	mu       sync.Mutex
	profiles map[string]*model.DataSourceProfile
	calls    []string

	status func(ctx context.Context, id string) (*model.ConnectionStatus, error)
}

func newFakeDataSources(profiles ...*model.DataSourceProfile) *fakeDataSources {
	f := &fakeDataSources{profiles: map[string]*model.DataSourceProfile{}}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	f.status = func(context.Context, string) (*model.ConnectionStatus, error) {
		return &model.ConnectionStatus{Connected: true, Status: model.DataSourceStatusActive, Message: "数据源连接正常"}, nil
	}
	return f
}

func (f *fakeDataSources) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeDataSources) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDataSources) List(context.Context) ([]*model.DataSourceProfile, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.DataSourceProfile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeDataSources) Get(_ context.Context, id string) (*model.DataSourceProfile, error) {
	f.record("get " + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrDataSourceNotFound
	}
	return p, nil
}

func (f *fakeDataSources) Create(_ context.Context, p *model.DataSourceProfile) (string, error) {
	f.record("create " + p.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
	return p.ID, nil
}

func (f *fakeDataSources) Update(_ context.Context, p *model.DataSourceProfile) error {
	f.record("update " + p.ID)
	return nil
}

func (f *fakeDataSources) Delete(_ context.Context, id string) error {
	f.record("delete " + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.profiles, id)
	return nil
}

func (f *fakeDataSources) Test(context.Context, *model.DataSourceProfile) (*model.ConnectionTestResult, error) {
	f.record("test")
	return &model.ConnectionTestResult{Success: false, Message: "连接测试失败，请检查配置"}, nil
}

func (f *fakeDataSources) Activate(_ context.Context, id string, _ bool) error {
	f.record("activate " + id)
	return nil
}

func (f *fakeDataSources) Status(ctx context.Context, id string) (*model.ConnectionStatus, error) {
	f.record("status " + id)
	return f.status(ctx, id)
}

func (f *fakeDataSources) Stats(context.Context) (map[string]any, error) {
	f.record("stats")
	return map[string]any{}, nil
}
