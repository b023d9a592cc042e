package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "counterviz/internal/errors"
	"counterviz/internal/exporter"
	"counterviz/internal/loader"
	"counterviz/internal/services"
	"counterviz/internal/shared/testutil"
	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) AnalyzeUploads(ctx context.Context, inputs []loader.Input, req usage.Request) (domain.AnalysisReport, error) {
	args := m.Called(inputs, req)
	return args.Get(0).(domain.AnalysisReport), args.Error(1)
}

func (m *MockAnalysisService) Export(ctx context.Context, report domain.AnalysisReport, format exporter.Format) ([]byte, error) {
	args := m.Called(report, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockLibraryService struct {
	mock.Mock
}

func (m *MockLibraryService) Latest() (domain.AnalysisReport, error) {
	args := m.Called()
	return args.Get(0).(domain.AnalysisReport), args.Error(1)
}

func (m *MockLibraryService) Status() services.LibraryStatus {
	return m.Called().Get(0).(services.LibraryStatus)
}

func (m *MockLibraryService) Refresh(ctx context.Context) error {
	return m.Called().Error(0)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

type upload struct {
	name string
	data []byte
}

// multipartBody builds an analysis form with the given uploads and fields.
func multipartBody(t *testing.T, files []upload, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newAnalysisRouter(t *testing.T, svc AnalysisService) http.Handler {
	logger, _ := testutil.NewTestLogger(t)
	h := NewAnalysisHandler(svc, logger, apierrors.NewErrorHandler(logger, false))
	h.now = func() time.Time { return time.Date(2023, 3, 1, 12, 30, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Mount("/api/v1/analysis", h.Routes())
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAnalysisHandler_Analyze(t *testing.T) {
	fy21 := []byte("report-a")
	fy22 := []byte("report-b")

	svc := new(MockAnalysisService)
	svc.On("AnalyzeUploads",
		[]loader.Input{{Name: "FY21.csv", Data: fy21}, {Name: "FY22.xlsx", Data: fy22}},
		mock.MatchedBy(func(req usage.Request) bool {
			return req.Metric == domain.MetricUniqueItemRequests &&
				req.CostPolicy == domain.CostPolicyActual &&
				len(req.Titles) == 2 &&
				req.UsageRange != nil && req.UsageRange.Min == 10 && req.UsageRange.Max == 100 &&
				req.Costs["FY21.csv"].Equal(decimal.RequireFromString("1250.50"))
		}),
	).Return(domain.AnalysisReport{Metric: domain.MetricUniqueItemRequests}, nil)

	body, ct := multipartBody(t,
		[]upload{{"FY21.csv", fy21}, {"FY22.xlsx", fy22}},
		map[string][]string{
			"metric":          {"unique"},
			"cost_basis":      {"Actual"},
			"titles":          {"Journal A", " ", "Journal B"},
			"usage_min":       {"10"},
			"usage_max":       {"100"},
			"cost[FY21.csv]":  {"$1,250.50"},
			"cost[FY22.xlsx]": {""},
		})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	newAnalysisRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody(t, rec)
	assert.Equal(t, "success", got["status"])
	data := got["data"].(map[string]interface{})
	assert.Equal(t, "Unique_Item_Requests", data["metric"])
	svc.AssertExpectations(t)
}

func TestAnalysisHandler_AnalyzeRejectsBadInput(t *testing.T) {
	report := upload{"FY21.csv", []byte("x")}

	tests := []struct {
		name       string
		files      []upload
		fields     map[string][]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no files",
			fields:     map[string][]string{"metric": {"total"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown metric",
			files:      []upload{report},
			fields:     map[string][]string{"metric": {"Searches"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad cost basis",
			files:      []upload{report},
			fields:     map[string][]string{"cost_basis": {"projected"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "negative cost",
			files:      []upload{report},
			fields:     map[string][]string{"cost[FY21.csv]": {"-5"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "inverted usage range",
			files:      []upload{report},
			fields:     map[string][]string{"usage_min": {"50"}, "usage_max": {"5"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "non numeric bound",
			files:      []upload{report},
			fields:     map[string][]string{"usage_min": {"ten"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			body, ct := multipartBody(t, tt.files, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			newAnalysisRouter(t, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, rec)["error_code"])
			svc.AssertNotCalled(t, "AnalyzeUploads", mock.Anything, mock.Anything)
		})
	}
}

func TestAnalysisHandler_AnalyzeRequiresMultipart(t *testing.T) {
	svc := new(MockAnalysisService)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/", bytes.NewBufferString(`{"files":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newAnalysisRouter(t, svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestAnalysisHandler_Export(t *testing.T) {
	report := domain.AnalysisReport{Metric: domain.MetricTotalItemRequests}

	tests := []struct {
		name     string
		query    string
		format   exporter.Format
		wantName string
	}{
		{"csv", "?format=csv", exporter.FormatCSV, "usage_analysis_20230301_123000.csv"},
		{"default xlsx", "", exporter.FormatXLSX, "usage_analysis_20230301_123000.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			svc.On("AnalyzeUploads", mock.Anything, mock.Anything).Return(report, nil)
			svc.On("Export", report, tt.format).Return([]byte("payload"), nil)

			body, ct := multipartBody(t, []upload{{"FY21.csv", []byte("x")}}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/export"+tt.query, body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			newAnalysisRouter(t, svc).ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.format.ContentType(), rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.wantName)
			assert.Equal(t, "payload", rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_ExportUnknownFormat(t *testing.T) {
	svc := new(MockAnalysisService)
	body, ct := multipartBody(t, []upload{{"FY21.csv", []byte("x")}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/export?format=pdf", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	newAnalysisRouter(t, svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	svc.AssertNotCalled(t, "AnalyzeUploads", mock.Anything, mock.Anything)
}

func newLibraryRouter(t *testing.T, svc LibraryService) http.Handler {
	logger, _ := testutil.NewTestLogger(t)
	h := NewLibraryHandler(svc, logger, apierrors.NewErrorHandler(logger, false))
	r := chi.NewRouter()
	r.Mount("/api/v1/library", h.Routes())
	return r
}

func TestLibraryHandler(t *testing.T) {
	status := services.LibraryStatus{Source: "reports", Loaded: true, Reports: 3}
	report := domain.AnalysisReport{Metric: domain.MetricTotalItemRequests}

	tests := []struct {
		name       string
		method     string
		path       string
		setup      func(m *MockLibraryService)
		wantStatus int
		wantCode   string
	}{
		{
			name:   "latest",
			method: http.MethodGet,
			path:   "/api/v1/library/",
			setup: func(m *MockLibraryService) {
				m.On("Latest").Return(report, nil)
				m.On("Status").Return(status)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "not loaded",
			method: http.MethodGet,
			path:   "/api/v1/library/",
			setup: func(m *MockLibraryService) {
				m.On("Latest").Return(domain.AnalysisReport{}, services.ErrLibraryNotLoaded)
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "LIBRARY_NOT_LOADED",
		},
		{
			name:   "refresh",
			method: http.MethodPost,
			path:   "/api/v1/library/refresh",
			setup: func(m *MockLibraryService) {
				m.On("Refresh").Return(nil)
				m.On("Latest").Return(report, nil)
				m.On("Status").Return(status)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "refresh fails",
			method: http.MethodPost,
			path:   "/api/v1/library/refresh",
			setup: func(m *MockLibraryService) {
				m.On("Refresh").Return(apierrors.NewStorageError("listing reports", errors.New("bucket gone")))
			},
			wantStatus: http.StatusBadGateway,
			wantCode:   "STORAGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLibraryService)
			tt.setup(svc)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			newLibraryRouter(t, svc).ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
				return
			}
			data := body["data"].(map[string]interface{})
			assert.Equal(t, true, data["library"].(map[string]interface{})["loaded"])
			assert.Equal(t, "Total_Item_Requests", data["report"].(map[string]interface{})["metric"])
			svc.AssertExpectations(t)
		})
	}
}

func TestLibraryHandler_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	newLibraryRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/library/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeBody(t, rec)["error_code"])
}

func TestHealthHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	tests := []struct {
		name       string
		path       string
		setup      func(m *MockHealthService)
		wantStatus int
	}{
		{
			name: "health",
			path: "/api/health",
			setup: func(m *MockHealthService) {
				m.On("HealthCheck").Return(services.HealthStatus{Status: "ok"})
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "ready",
			path: "/api/health/ready",
			setup: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "ready"})
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "not ready",
			path: "/api/health/ready",
			setup: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "not_ready"})
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "live",
			path: "/api/health/live",
			setup: func(m *MockHealthService) {
				m.On("LivenessCheck").Return(services.HealthStatus{Status: "alive"})
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "version",
			path: "/api/version",
			setup: func(m *MockHealthService) {
				m.On("Version").Return(map[string]interface{}{"version": "test"})
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockHealthService)
			tt.setup(svc)
			r := chi.NewRouter()
			r.Route("/api", NewHealthHandler(svc, logger).RegisterRoutes)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}
