package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/erp/bridge/internal/infrastructure/scheduler"
	"github.com/erp/bridge/internal/interfaces/http/dto"
	"github.com/erp/bridge/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockSyncService struct {
	mock.Mock
}

func (m *mockSyncService) Run(ctx context.Context, kind syncer.EntityKind, direction syncer.Direction, changed bool) (*syncer.Report, error) {
	args := m.Called(ctx, kind, direction, changed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncer.Report), args.Error(1)
}

func (m *mockSyncService) RunOne(ctx context.Context, kind syncer.EntityKind, direction syncer.Direction, key string) (*syncer.Result, error) {
	args := m.Called(ctx, kind, direction, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncer.Result), args.Error(1)
}

func (m *mockSyncService) Purge(ctx context.Context, kind syncer.EntityKind) (int64, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(int64), args.Error(1)
}

type stubScheduler struct {
	states    []scheduler.JobState
	triggered []string
}

func (s *stubScheduler) Jobs() []scheduler.JobState {
	return s.states
}

func (s *stubScheduler) Trigger(name string) error {
	for i := range s.states {
		if s.states[i].Name == name {
			s.triggered = append(s.triggered, name)
			s.states[i].Status = scheduler.JobStatusSuccess
			return nil
		}
	}
	return fmt.Errorf("%w: %s", scheduler.ErrJobNotFound, name)
}

func newEngine(service SyncService, sched JobScheduler) *gin.Engine {
	engine := gin.New()
	h := NewSyncHandler(service, sched)
	router.NewRouter(engine).Register(h).Setup()
	return engine
}

func doRequest(engine *gin.Engine, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestSyncHandler_Run(t *testing.T) {
	t.Run("runs a batch and returns the report", func(t *testing.T) {
		svc := new(mockSyncService)
		report := syncer.NewReport(syncer.KindProduct, syncer.ToBridge)
		report.Total, report.Succeeded = 2, 2
		svc.On("Run", mock.Anything, syncer.KindProduct, syncer.ToBridge, false).Return(report.Finish(), nil)

		w, body := doRequest(newEngine(svc, nil), http.MethodPost, "/api/v1/sync/product/to")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "SUCCESS", data["status"])
		assert.Equal(t, float64(2), data["succeeded"])
		svc.AssertExpectations(t)
	})

	t.Run("changed query selects changed records", func(t *testing.T) {
		svc := new(mockSyncService)
		svc.On("Run", mock.Anything, syncer.KindOrder, syncer.FromBridge, true).
			Return(syncer.SkippedReport(syncer.KindOrder, syncer.FromBridge), nil)

		w, body := doRequest(newEngine(svc, nil), http.MethodPost, "/api/v1/sync/ORDER/from?changed=true")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "SKIPPED", body["data"].(map[string]any)["status"])
		svc.AssertExpectations(t)
	})

	t.Run("run in progress is a conflict", func(t *testing.T) {
		svc := new(mockSyncService)
		svc.On("Run", mock.Anything, syncer.KindTax, syncer.ToBridge, false).
			Return(nil, fmt.Errorf("%w: tax:to", syncer.ErrRunInProgress))

		w, body := doRequest(newEngine(svc, nil), http.MethodPost, "/api/v1/sync/tax/to")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeRunInProgress, errorCode(body))
	})

	t.Run("unknown kind", func(t *testing.T) {
		svc := new(mockSyncService)
		w, body := doRequest(newEngine(svc, nil), http.MethodPost, "/api/v1/sync/stock/to")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeUnknownKind, errorCode(body))
		svc.AssertNotCalled(t, "Run")
	})

	t.Run("invalid direction", func(t *testing.T) {
		svc := new(mockSyncService)
		w, body := doRequest(newEngine(svc, nil), http.MethodPost, "/api/v1/sync/tax/sideways")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(body))
	})

	t.Run("unexpected error is internal", func(t *testing.T) {
		svc := new(mockSyncService)
		svc.On("Run", mock.Anything, syncer.KindTax, syncer.ToBridge, false).Return(nil, errors.New("connection reset"))

		w, body := doRequest(newEngine(svc, nil), http.MethodPost, "/api/v1/sync/tax/to")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, dto.ErrCodeInternal, errorCode(body))
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}

func TestSyncHandler_RunOne(t *testing.T) {
	t.Run("returns the record result", func(t *testing.T) {
		svc := new(mockSyncService)
		id := uuid.New()
		svc.On("RunOne", mock.Anything, syncer.KindProduct, syncer.FromBridge, "204116").
			Return(&syncer.Result{Key: "204116", ID: id, Success: true, Message: "204116 updated"}, nil)

		w, body := doRequest(newEngine(svc, nil), http.MethodPost, "/api/v1/sync/product/from/204116")

		assert.Equal(t, http.StatusOK, w.Code)
		data := body["data"].(map[string]any)
		assert.Equal(t, "204116", data["key"])
		assert.Equal(t, id.String(), data["id"])
		assert.Equal(t, true, data["success"])
	})

	t.Run("domain error keeps its code", func(t *testing.T) {
		svc := new(mockSyncService)
		svc.On("RunOne", mock.Anything, syncer.KindCustomer, syncer.ToBridge, "x").
			Return(nil, shared.NewDomainError("INVALID_INPUT", "customer number must be numeric"))

		w, body := doRequest(newEngine(svc, nil), http.MethodPost, "/api/v1/sync/customer/to/x")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, errorCode(body))
		assert.Contains(t, w.Body.String(), "customer number must be numeric")
	})
}

func TestSyncHandler_Purge(t *testing.T) {
	svc := new(mockSyncService)
	svc.On("Purge", mock.Anything, syncer.KindTax).Return(int64(3), nil)
	svc.On("Purge", mock.Anything, syncer.KindPrice).Return(int64(0), fmt.Errorf("%w: price", syncer.ErrNotPurgeable))
	engine := newEngine(svc, nil)

	w, body := doRequest(engine, http.MethodDelete, "/api/v1/sync/tax")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["data"].(map[string]any)["deleted"])

	w, body = doRequest(engine, http.MethodDelete, "/api/v1/sync/price")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeNotPurgeable, errorCode(body))
}

func TestSyncHandler_Schedule(t *testing.T) {
	t.Run("lists jobs", func(t *testing.T) {
		sched := &stubScheduler{states: []scheduler.JobState{
			{Job: scheduler.Job{Name: "product:to", Kind: syncer.KindProduct, Direction: syncer.ToBridge, Spec: "@hourly"}, Status: scheduler.JobStatusPending},
		}}
		w, body := doRequest(newEngine(new(mockSyncService), sched), http.MethodGet, "/api/v1/schedule")

		assert.Equal(t, http.StatusOK, w.Code)
		jobs := body["data"].([]any)
		require.Len(t, jobs, 1)
		job := jobs[0].(map[string]any)
		assert.Equal(t, "product:to", job["name"])
		assert.Equal(t, "@hourly", job["spec"])
		assert.Equal(t, "PENDING", job["status"])
	})

	t.Run("lists nothing without scheduler", func(t *testing.T) {
		w, body := doRequest(newEngine(new(mockSyncService), nil), http.MethodGet, "/api/v1/schedule")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, body["data"])
	})

	t.Run("triggers a job", func(t *testing.T) {
		sched := &stubScheduler{states: []scheduler.JobState{
			{Job: scheduler.Job{Name: "tax:to"}, Status: scheduler.JobStatusPending},
		}}
		engine := newEngine(new(mockSyncService), sched)

		w, body := doRequest(engine, http.MethodPost, "/api/v1/schedule/tax:to/trigger")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "SUCCESS", body["data"].(map[string]any)["status"])
		assert.Equal(t, []string{"tax:to"}, sched.triggered)

		w, _ = doRequest(engine, http.MethodPost, "/api/v1/schedule/order:to/trigger")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("trigger without scheduler", func(t *testing.T) {
		w, body := doRequest(newEngine(new(mockSyncService), nil), http.MethodPost, "/api/v1/schedule/tax:to/trigger")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeUnavailable, errorCode(body))
	})
}
