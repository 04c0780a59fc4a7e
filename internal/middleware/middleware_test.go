package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apierrors "finops/internal/errors"
	"finops/internal/infrastructure"
	"finops/internal/shared/testutil"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRequestID(t *testing.T) {
	var seen, trace string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = chimw.GetReqID(r.Context())
		trace = infrastructure.GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, seen, trace)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestGetRequestID_FallsBackToTraceID(t *testing.T) {
	ctx := infrastructure.WithTraceID(context.Background(), "trace-1")
	assert.Equal(t, "trace-1", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestStructuredLogger(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	rec, ok := logs.FindMessage("request completed")
	require.True(t, ok)
	assert.Equal(t, "ERROR", rec.Level.String())
	assert.Equal(t, int64(500), rec.Attrs["status"])
	assert.NotEmpty(t, rec.Attrs["trace_id"])
}

func TestRecoverer(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := RequestID(Recoverer(apierrors.NewErrorHandler(logger, false))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":500`)
	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestRateLimiter(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewRateLimiter(1, 2, logger).Handler(http.HandlerFunc(okHandler))

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			var body apierrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error.ErrorCode)
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.True(t, logs.ContainsMessage("rate limit exceeded"))
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestOTelMiddleware(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	logger, _ := testutil.NewTestLogger(t)
	m, err := NewOTelMiddleware(&infrastructure.OTelProviders{
		Tracer: tp.Tracer("test"),
		Meter:  mp.Meter("test"),
		Logger: logger,
	})
	require.NoError(t, err)

	var traceID string
	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/operations/{id}", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/operations/42", nil))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /api/operations/{id}", ended[0].Name())
	assert.Equal(t, ended[0].SpanContext().TraceID().String(), traceID)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = true
		}
	}
	assert.True(t, names["http_requests_total"])
	assert.True(t, names["http_request_duration_seconds"])
}

type dateRange struct {
	Start string `json:"start" validate:"required,isodate"`
	Mode  string `json:"mode" validate:"omitempty,oneof=full quick"`
}

func TestValidateStruct(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))

	assert.NoError(t, v.ValidateStruct(dateRange{Start: "2023-02-28"}))

	err := v.ValidateStruct(dateRange{Start: "2023-02-30", Mode: "slow"})
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok)
	require.Len(t, details.Errors, 2)
	assert.Equal(t, "start", details.Errors[0].Field)
	assert.Equal(t, "start must be a date in YYYY-MM-DD format", details.Errors[0].Message)
	assert.Equal(t, "mode must be one of: full, quick", details.Errors[1].Message)
}

func TestValidateRequest(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
	h := v.ValidateRequest(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"seed":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"seed":1}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	big.ContentLength = 2 << 20
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("application/json")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueryParamValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	req := httptest.NewRequest(http.MethodGet, "/?limit=5&status=failed&start=2023-01-01", nil)
	rec := httptest.NewRecorder()

	n, ok := v.ValidateInt(rec, req, "limit", 1, 100, 20)
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	n, ok = v.ValidateInt(rec, req, "missing", 1, 100, 20)
	assert.True(t, ok)
	assert.Equal(t, 20, n)
	s, ok := v.ValidateEnum(rec, req, "status", []string{"completed", "failed"}, "")
	assert.True(t, ok)
	assert.Equal(t, "failed", s)
	d, ok := v.ValidateDate(rec, req, "start")
	assert.True(t, ok)
	assert.Equal(t, 2023, d.Year())
	d, ok = v.ValidateDate(rec, req, "end")
	assert.True(t, ok)
	assert.True(t, d.IsZero())
	assert.Equal(t, http.StatusOK, rec.Code)

	bad := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	rec = httptest.NewRecorder()
	_, ok = v.ValidateInt(rec, bad, "limit", 1, 100, 20)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit must be between 1 and 100")

	bad = httptest.NewRequest(http.MethodGet, "/?start=01-02-2023", nil)
	rec = httptest.NewRecorder()
	_, ok = v.ValidateDate(rec, bad, "start")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
