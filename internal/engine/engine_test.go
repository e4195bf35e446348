// internal/engine/engine_test.go
package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/primedigitaltech/azon-seeker/internal/config"
	"github.com/primedigitaltech/azon-seeker/internal/export"
	"github.com/primedigitaltech/azon-seeker/internal/monitoring"
	"github.com/primedigitaltech/azon-seeker/internal/remote/remotetest"
	"github.com/primedigitaltech/azon-seeker/internal/storage"
	"github.com/primedigitaltech/azon-seeker/internal/taskqueue"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Export.Type = config.ExportNone
	e, err := New(context.Background(), cfg, nil, Options{
		Executor: remotetest.NewExecutor(),
		Store:    storage.NewMemoryStore(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close(context.Background()) })
	return e
}

func TestNewRequiresExecutor(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Type = config.ExportNone
	_, err := New(context.Background(), cfg, nil, Options{Store: storage.NewMemoryStore()})
	assert.Error(t, err)
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ExportConfig
		want interface{}
	}{
		{"none", config.ExportConfig{Type: config.ExportNone}, nil},
		{"http", config.ExportConfig{Type: config.ExportHTTP, BaseURL: "http://127.0.0.1:9"}, &export.HTTPService{}},
		{"excel", config.ExportConfig{Type: config.ExportExcel, ExcelPath: filepath.Join(t.TempDir(), "out.xlsx")}, &export.ExcelService{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := newExporter(tt.cfg, utils.NewNopLogger())
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, svc)
				return
			}
			assert.IsType(t, tt.want, svc)
		})
	}
}

func TestJobRejectsEmptyInputs(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AmazonSearch([]string{"", "  "})
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeInvalidInput, utils.CodeOf(err))

	_, err = e.LowesDetail(nil)
	assert.Error(t, err)
}

func TestJobNames(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name string
		job  func() (Job, error)
		want string
	}{
		{"search", func() (Job, error) { return e.AmazonSearch([]string{"lamp"}) }, "amazon.search"},
		{"detail", func() (Job, error) { return e.AmazonDetail([]string{"B000000001"}, AmazonDetailOptions{APlus: true}) }, "amazon.detail"},
		{"review", func() (Job, error) { return e.AmazonReview([]string{"B000000001"}, true) }, "amazon.review"},
		{"homedepot", func() (Job, error) { return e.HomedepotDetail([]string{"312345678"}, false) }, "homedepot.detail"},
		{"lowes", func() (Job, error) { return e.LowesDetail([]string{"https://www.lowes.com/pd/x/1000"}) }, "lowes.detail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := tt.job()
			require.NoError(t, err)
			assert.Equal(t, tt.want, job.Name)
			assert.Len(t, job.Inputs, 1)
		})
	}
}

func TestCompact(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, compact([]string{" a", "", "b", "a "}))
	assert.Empty(t, compact(nil))
}

func TestSubmitReturnsWorkerStatus(t *testing.T) {
	e := newTestEngine(t)

	job, err := e.LowesDetail([]string{"not-a-link", "also-bad"})
	require.NoError(t, err)

	status, err := e.Submit(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, types.SiteLowes, status.Site)
	assert.Equal(t, types.StatusCompleted, status.State)
	assert.Equal(t, 2, status.Processed)
	assert.Equal(t, 2, status.Failed)

	n, err := testutil.GatherAndCount(e.Metrics.Registry(), "azon_seeker_worker_inputs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnqueue(t *testing.T) {
	e := newTestEngine(t)

	job, err := e.LowesDetail([]string{"not-a-link"})
	require.NoError(t, err)

	task := e.Enqueue(context.Background(), job)
	<-task.Done()
	result := task.Result()
	assert.Equal(t, taskqueue.StatusSuccess, result.Status)
	assert.Equal(t, 1, e.Workers.Lowes.Status().Failed)
}

func TestHealthAndCommit(t *testing.T) {
	e := newTestEngine(t)

	health := e.Health.Check(context.Background())
	assert.Equal(t, monitoring.HealthStatusHealthy, health.Status)
	assert.Len(t, health.Checks, 2)

	assert.NoError(t, e.Commit(context.Background()))
}

func TestApplyConfig(t *testing.T) {
	logger, err := utils.NewLogger(utils.LogConfig{Level: "info", Encoding: "json", OutputPaths: []string{filepath.Join(t.TempDir(), "log")}})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Export.Type = config.ExportNone
	e, err := New(context.Background(), cfg, logger, Options{
		Executor: remotetest.NewExecutor(),
		Store:    storage.NewMemoryStore(),
	})
	require.NoError(t, err)
	defer e.Close(context.Background())

	reloaded := config.Default()
	reloaded.Logging.Level = "debug"
	reloaded.Executor.RateLimit = 4
	e.ApplyConfig(reloaded)
	assert.Equal(t, "debug", logger.(*utils.ZapLogger).Level())
	assert.Equal(t, rate.Limit(4), e.limiter.Limit())
}
