package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"text2sql-console/internal/model"
	"text2sql-console/internal/repository"
	"text2sql-console/internal/utils"
)

const generatedResponse = "**生成的SQL语句:**\n```sql\nSELECT id, name FROM users\n```\n**查询说明:**\n列出所有用户\n"

const executionResponse = "**查询统计:** 返回 2 行数据，执行耗时 5 ms\n" +
	"**查询结果:**\n" +
	"| id | name |\n" +
	"|----|------|\n" +
	"| 1 | alice |\n" +
	"| 2 | NULL |\n"

func newConnectedSession(t *testing.T, console *fakeConsole, dataSources *fakeDataSources) *Session {
	t.Helper()
	session := NewSession("s-1", console, dataSources, SessionOptions{FeedbackResetDelay: 20 * time.Millisecond}, zap.NewNop())
	t.Cleanup(session.Close)
	require.NoError(t, session.CheckConnection(context.Background()))
	return session
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, utils.IsErrorType(err, code), "want %s, got %v", code, err)
}

func TestCheckConnectionLoadsSchema(t *testing.T) {
	session := newConnectedSession(t, connectedConsole(), newFakeDataSources())

	state := session.Snapshot()
	require.Equal(t, ConnectionSchemaLoaded, state.Connection)
	require.True(t, state.IsConnected())
	require.Equal(t, "shop", state.DatabaseName)
	require.Len(t, state.Schema.Tables, 1)
	require.Equal(t, 2, state.Schema.TotalColumns)
}

func TestCheckConnectionKeepsLoadedSchema(t *testing.T) {
	console := connectedConsole()
	session := newConnectedSession(t, console, newFakeDataSources())
	calls := console.calls.Load()

	require.NoError(t, session.CheckConnection(context.Background()))
	require.Equal(t, ConnectionSchemaLoaded, session.Snapshot().Connection)
	require.Equal(t, calls+1, console.calls.Load(), "only server-info is called again")
}

func TestCheckConnectionFailure(t *testing.T) {
	console := connectedConsole()
	console.serverInfo = func(context.Context) (*model.ServerInfo, error) {
		return nil, &repository.BackendError{
			Kind:     repository.ErrBackendUnavailable,
			Endpoint: "server-info",
			Cause:    errors.New("connection refused"),
		}
	}
	session := NewSession("s-1", console, newFakeDataSources(), SessionOptions{}, nil)

	err := session.CheckConnection(context.Background())
	requireCode(t, err, utils.ErrCodeBackendUnavailable)

	state := session.Snapshot()
	require.Equal(t, ConnectionDisconnected, state.Connection)
	require.Equal(t, "connection refused", state.ConnectionMessage)
	require.True(t, state.Schema.IsEmpty())
}

func TestSwitchDataSourceLoadsSchemaWhenReportedDown(t *testing.T) {
	dataSources := newFakeDataSources()
	dataSources.status = func(context.Context, string) (*model.ConnectionStatus, error) {
		return &model.ConnectionStatus{Connected: false, Status: model.DataSourceStatusFailed, Message: "数据源连接失败"}, nil
	}
	console := connectedConsole()
	var fetchedFor []string
	console.fetchSchema = func(_ context.Context, id string) (repository.SchemaPayload, error) {
		fetchedFor = append(fetchedFor, id)
		return repository.ContentPayload{Description: usersSchema}, nil
	}
	session := NewSession("s-1", console, dataSources, SessionOptions{}, nil)

	require.NoError(t, session.SwitchDataSource(context.Background(), "ds-1"))

	state := session.Snapshot()
	require.Equal(t, []string{"status ds-1"}, dataSources.recorded())
	require.Equal(t, []string{"ds-1"}, fetchedFor)
	require.Equal(t, "数据源连接失败", state.ConnectionMessage)
	require.Equal(t, ConnectionSchemaLoaded, state.Connection)
	require.Len(t, state.Schema.Tables, 1)
}

func TestSwitchDataSourceLoadsSchemaWhenStatusFails(t *testing.T) {
	dataSources := newFakeDataSources()
	dataSources.status = func(context.Context, string) (*model.ConnectionStatus, error) {
		return nil, &repository.BackendError{Kind: repository.ErrBackendUnavailable, Endpoint: "datasource-status", Status: 500}
	}
	console := connectedConsole()
	var fetched int
	console.fetchSchema = func(context.Context, string) (repository.SchemaPayload, error) {
		fetched++
		return repository.ContentPayload{Description: usersSchema}, nil
	}
	session := NewSession("s-1", console, dataSources, SessionOptions{}, nil)

	require.NoError(t, session.SwitchDataSource(context.Background(), "ds-1"))

	state := session.Snapshot()
	require.Equal(t, 1, fetched)
	require.NotEmpty(t, state.ConnectionMessage)
	require.Len(t, state.Schema.Tables, 1)
	require.Equal(t, 2, state.Schema.TotalColumns)
}

func TestSwitchDataSourceReportsSchemaFailure(t *testing.T) {
	dataSources := newFakeDataSources()
	dataSources.status = func(context.Context, string) (*model.ConnectionStatus, error) {
		return &model.ConnectionStatus{Connected: false, Message: "数据源连接失败"}, nil
	}
	console := connectedConsole()
	console.fetchSchema = func(context.Context, string) (repository.SchemaPayload, error) {
		return nil, &repository.BackendError{Kind: repository.ErrBackendUnavailable, Endpoint: "datasource-schema", Status: 500}
	}
	session := NewSession("s-1", console, dataSources, SessionOptions{}, nil)

	requireCode(t, session.SwitchDataSource(context.Background(), "ds-1"), utils.ErrCodeBackendUnavailable)

	state := session.Snapshot()
	require.Equal(t, ConnectionDisconnected, state.Connection)
	require.Equal(t, "数据源连接失败", state.ConnectionMessage)
	require.True(t, state.Schema.IsEmpty())
}

func TestLoadSchemaProceedsWhenCheckFails(t *testing.T) {
	console := connectedConsole()
	console.serverInfo = func(context.Context) (*model.ServerInfo, error) {
		return nil, &repository.BackendError{Kind: repository.ErrBackendUnavailable, Endpoint: "server-info", Status: 503}
	}
	session := NewSession("s-1", console, newFakeDataSources(), SessionOptions{}, nil)

	require.NoError(t, session.LoadSchema(context.Background()))
	state := session.Snapshot()
	require.Equal(t, ConnectionSchemaLoaded, state.Connection)
	require.Len(t, state.Schema.Tables, 1)
}

func TestLoadSchemaMalformedPayload(t *testing.T) {
	console := connectedConsole()
	session := newConnectedSession(t, console, newFakeDataSources())
	console.fetchSchema = func(context.Context, string) (repository.SchemaPayload, error) {
		return nil, repository.ErrMalformedPayload
	}

	require.NoError(t, session.LoadSchema(context.Background()))
	state := session.Snapshot()
	require.True(t, state.Schema.IsEmpty())
	require.NotEmpty(t, state.Notice)
	require.Equal(t, ConnectionSchemaLoaded, state.Connection)
}

func TestConvertValidationOrder(t *testing.T) {
	console := connectedConsole()
	session := NewSession("s-1", console, newFakeDataSources(), SessionOptions{}, nil)
	ctx := context.Background()

	requireCode(t, session.ConvertToSQL(ctx, "   "), utils.ErrCodeEmptyQuery)
	requireCode(t, session.ConvertToSQL(ctx, "统计订单总数"), utils.ErrCodeNotConnected)
	requireCode(t, session.QueryAndExecute(ctx, ""), utils.ErrCodeEmptyQuery)
	requireCode(t, session.QueryAndExecute(ctx, "统计订单总数"), utils.ErrCodeNotConnected)
	require.Zero(t, console.calls.Load())
}

func TestConvertToSQL(t *testing.T) {
	console := connectedConsole()
	var received model.Text2SQLRequest
	console.generateSQL = func(_ context.Context, req model.Text2SQLRequest) (string, error) {
		received = req
		return generatedResponse, nil
	}
	console.executeSQL = func(context.Context, string) (string, error) {
		return executionResponse, nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()

	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))
	require.Equal(t, "查询所有用户信息", received.Prompt)
	require.Empty(t, received.Context)

	state := session.Snapshot()
	require.Equal(t, "SELECT id, name FROM users", state.GeneratedSQL)
	require.Equal(t, "列出所有用户", state.Explanation)
	require.False(t, state.Converting)

	require.NoError(t, session.ExecuteSQL(ctx))
	results := session.Snapshot().Results
	require.NotNil(t, results)

	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))
	require.Same(t, results, session.Snapshot().Results, "converting leaves results alone")
}

func TestReentrantConvertMakesNoCall(t *testing.T) {
	console := connectedConsole()
	release := make(chan struct{})
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		<-release
		return generatedResponse, nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()
	before := console.calls.Load()

	done := make(chan error, 1)
	go func() { done <- session.ConvertToSQL(ctx, "first") }()
	require.Eventually(t, func() bool { return session.Snapshot().Converting }, time.Second, 5*time.Millisecond)

	requireCode(t, session.ConvertToSQL(ctx, "second"), utils.ErrCodeAlreadyProcessing)
	requireCode(t, session.QueryAndExecute(ctx, "third"), utils.ErrCodeAlreadyProcessing)
	require.Equal(t, before+1, console.calls.Load())
	require.Equal(t, "first", session.Snapshot().UserQuery)

	close(release)
	require.NoError(t, <-done)

	state := session.Snapshot()
	require.False(t, state.Converting)
	require.Equal(t, "SELECT id, name FROM users", state.GeneratedSQL)
}

func TestConvertBackendRejectedKeepsState(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return generatedResponse, nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()
	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))

	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return "", &repository.BackendError{Kind: repository.ErrBackendRejected, Endpoint: "text2sql", Status: 200, Message: "转换失败: 模型超时"}
	}
	err := session.ConvertToSQL(ctx, "统计订单总数")
	requireCode(t, err, utils.ErrCodeBackendRejected)

	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "转换失败: 模型超时", appErr.Message)

	state := session.Snapshot()
	require.False(t, state.Converting)
	require.Equal(t, "SELECT id, name FROM users", state.GeneratedSQL)
}

func TestConvertMalformedPayloadIsNotice(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return "", repository.ErrMalformedPayload
	}
	session := newConnectedSession(t, console, newFakeDataSources())

	require.NoError(t, session.ConvertToSQL(context.Background(), "统计订单总数"))
	state := session.Snapshot()
	require.Empty(t, state.GeneratedSQL)
	require.Equal(t, "The response contained no SQL statement", state.Notice)
}

func TestExecuteSQL(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return generatedResponse, nil
	}
	var executed string
	console.executeSQL = func(_ context.Context, sql string) (string, error) {
		executed = sql
		return executionResponse, nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()

	requireCode(t, session.ExecuteSQL(ctx), utils.ErrCodeNoGeneratedSQL)

	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))
	require.NoError(t, session.ExecuteSQL(ctx))
	require.Equal(t, "SELECT id, name FROM users", executed)

	state := session.Snapshot()
	require.False(t, state.Executing)
	require.Equal(t, []string{"id", "name"}, state.Results.Columns)
	require.Len(t, state.Results.Rows, 2)
	require.Nil(t, state.Results.Rows[1][1])
	require.Equal(t, int64(5), state.Results.ExecutionTimeMs)
}

func TestExecuteSQLMalformedPayloadIsNotice(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return generatedResponse, nil
	}
	console.executeSQL = func(context.Context, string) (string, error) {
		return "", repository.ErrMalformedPayload
	}
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()

	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))
	require.NoError(t, session.ExecuteSQL(ctx))

	state := session.Snapshot()
	require.Nil(t, state.Results)
	require.Equal(t, "The backend answered with no result text", state.Notice)
	require.Equal(t, "SELECT id, name FROM users", state.GeneratedSQL)
	require.False(t, state.Executing)
}

func TestQueryAndExecuteMalformedPayloadIsNotice(t *testing.T) {
	console := connectedConsole()
	console.queryAndExecute = func(context.Context, string) (string, error) {
		return "", repository.ErrMalformedPayload
	}
	session := newConnectedSession(t, console, newFakeDataSources())

	require.NoError(t, session.QueryAndExecute(context.Background(), "列出用户"))

	state := session.Snapshot()
	require.Nil(t, state.Results)
	require.Empty(t, state.GeneratedSQL)
	require.Equal(t, "The backend answered with no result text", state.Notice)
}

func TestQueryAndExecute(t *testing.T) {
	console := connectedConsole()
	console.queryAndExecute = func(_ context.Context, query string) (string, error) {
		require.Equal(t, "列出用户", query)
		return "**生成的SQL:**\n```sql\nSELECT id, name FROM users\n```\n**查询说明:**\n列出用户\n**执行结果:**\n" + executionResponse, nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())

	require.NoError(t, session.QueryAndExecute(context.Background(), "列出用户"))

	state := session.Snapshot()
	require.False(t, state.Executing)
	require.Equal(t, "SELECT id, name FROM users", state.GeneratedSQL)
	require.Equal(t, "列出用户", state.Explanation)
	require.NotNil(t, state.Results)
	require.Equal(t, 2, state.Results.TotalRows)
}

func TestSubmitFeedback(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return generatedResponse, nil
	}
	var received model.Feedback
	console.submitFeedback = func(_ context.Context, feedback model.Feedback) (string, error) {
		received = feedback
		return "感谢反馈", nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()

	requireCode(t, session.SubmitFeedback(ctx, true, "", ""), utils.ErrCodeMissingFeedbackData)

	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))
	require.NoError(t, session.SubmitFeedback(ctx, false, "SELECT * FROM users", "少了字段"))
	require.Equal(t, "查询所有用户信息", received.UserQuery)
	require.Equal(t, "SELECT id, name FROM users", received.GeneratedSQL)
	require.False(t, received.IsCorrect)
	require.Equal(t, "SELECT * FROM users", received.CorrectedSQL)

	state := session.Snapshot()
	require.True(t, state.FeedbackSubmitted)
	require.Equal(t, "感谢反馈", state.Notice)

	require.Eventually(t, func() bool { return !session.Snapshot().FeedbackSubmitted }, time.Second, 5*time.Millisecond)
}

func TestClearAllStopsFeedbackReset(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return generatedResponse, nil
	}
	console.submitFeedback = func(context.Context, model.Feedback) (string, error) { return "", nil }
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()

	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))
	require.NoError(t, session.SubmitFeedback(ctx, true, "", ""))

	session.ClearAll()
	state := session.Snapshot()
	require.Empty(t, state.UserQuery)
	require.Empty(t, state.GeneratedSQL)
	require.Empty(t, state.Explanation)
	require.Nil(t, state.Results)
	require.False(t, state.FeedbackSubmitted)
	require.False(t, state.Schema.IsEmpty(), "the schema survives a clear")
}

func TestSwitchDataSourceClearsStateBeforeLoad(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return generatedResponse, nil
	}
	console.executeSQL = func(context.Context, string) (string, error) {
		return executionResponse, nil
	}
	var fetchedFor string
	console.fetchSchema = func(_ context.Context, id string) (repository.SchemaPayload, error) {
		fetchedFor = id
		return repository.ContentPayload{Description: usersSchema}, nil
	}
	dataSources := newFakeDataSources()
	session := newConnectedSession(t, console, dataSources)
	ctx := context.Background()

	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))
	require.NoError(t, session.ExecuteSQL(ctx))

	var seen SessionState
	dataSources.status = func(context.Context, string) (*model.ConnectionStatus, error) {
		seen = session.Snapshot()
		return &model.ConnectionStatus{Connected: true, Message: "当前数据库: crm"}, nil
	}

	require.NoError(t, session.SwitchDataSource(ctx, "ds-2"))

	require.Equal(t, ConnectionDisconnected, seen.Connection)
	require.True(t, seen.Schema.IsEmpty())
	require.Nil(t, seen.Results)
	require.Empty(t, seen.GeneratedSQL)
	require.Empty(t, seen.Explanation)
	require.Equal(t, "ds-2", seen.ActiveDataSourceID)

	state := session.Snapshot()
	require.Equal(t, "ds-2", fetchedFor)
	require.Equal(t, ConnectionSchemaLoaded, state.Connection)
	require.Equal(t, "crm", state.DatabaseName)
	require.Equal(t, "查询所有用户信息", state.UserQuery, "the query text is kept")
}

func TestStaleResponseIsDropped(t *testing.T) {
	console := connectedConsole()
	release := make(chan struct{})
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		<-release
		return generatedResponse, nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- session.ConvertToSQL(ctx, "查询所有用户信息") }()
	require.Eventually(t, func() bool { return session.Snapshot().Converting }, time.Second, 5*time.Millisecond)

	require.NoError(t, session.SwitchDataSource(ctx, "ds-2"))
	close(release)

	requireCode(t, <-done, utils.ErrCodeStaleResponse)
	state := session.Snapshot()
	require.Empty(t, state.GeneratedSQL)
	require.False(t, state.Converting)
	require.Equal(t, uint64(1), state.Generation)
}

func TestSetQueryDropsNotice(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return generatedResponse, nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())

	require.NoError(t, session.ConvertToSQL(context.Background(), "查询所有用户信息"))
	require.Equal(t, "SQL generated", session.Snapshot().Notice)

	session.SetQuery("统计订单总数")
	state := session.Snapshot()
	require.Equal(t, "统计订单总数", state.UserQuery)
	require.Empty(t, state.Notice)
	require.Equal(t, "SELECT id, name FROM users", state.GeneratedSQL)
}

func TestInsertColumnName(t *testing.T) {
	session := NewSession("s-1", connectedConsole(), newFakeDataSources(), SessionOptions{}, nil)

	require.Equal(t, "users.name", session.InsertColumnName("users", "name"))
	require.Equal(t, "users.name", session.Snapshot().UserQuery)

	session.SetQuery("查询")
	session.InsertColumnName("orders", "id")
	require.Equal(t, "查询 orders.id", session.Snapshot().UserQuery)
}

func TestExplainSQLLeavesStateAlone(t *testing.T) {
	console := connectedConsole()
	console.generateSQL = func(context.Context, model.Text2SQLRequest) (string, error) {
		return generatedResponse, nil
	}
	var received model.ExplainSQLRequest
	console.explainSQL = func(_ context.Context, req model.ExplainSQLRequest) (string, error) {
		received = req
		return "该语句查询用户表", nil
	}
	session := newConnectedSession(t, console, newFakeDataSources())
	ctx := context.Background()

	_, err := session.ExplainSQL(ctx, "")
	requireCode(t, err, utils.ErrCodeNoGeneratedSQL)

	require.NoError(t, session.ConvertToSQL(ctx, "查询所有用户信息"))
	before := session.Snapshot()

	text, err := session.ExplainSQL(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "该语句查询用户表", text)
	require.Equal(t, "SELECT id, name FROM users", received.SQL)
	require.Equal(t, "查询所有用户信息", received.Context)
	require.Equal(t, before, session.Snapshot())

	_, err = session.ExplainSQL(ctx, "SELECT 1")
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", received.SQL)
}
