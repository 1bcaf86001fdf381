package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiered-billing-engine/internal/catalog"
	"github.com/tiered-billing-engine/internal/config"
	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/ledger"
	"github.com/tiered-billing-engine/internal/service"
)

const scenarioEstimate = `{
	"components": [
		{"name": "Consultation", "baseAmount": 3500, "isRequired": true},
		{"name": "ECG", "baseAmount": 500, "isRequired": true},
		{"name": "Blood Panel", "baseAmount": 800, "isRequired": true},
		{"name": "Nursing", "baseAmount": 300, "isRequired": false},
		{"name": "Pharmacy", "baseAmount": 400, "isRequired": false}
	],
	"complexity": "Moderate",
	"urgency": "Routine",
	"category": "SeniorCitizen"
}`

func newTestServer(t *testing.T, configBody string) *Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configBody), 0o644))
	cm, err := config.NewManagerFromFile(path)
	require.NoError(t, err)

	store, err := ledger.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	billing, err := service.NewBillingService(service.Dependencies{
		Catalog: catalog.Default(),
		Ledger:  store,
		Logger:  logger,
	})
	require.NoError(t, err)

	return NewServer(cm, billing, logger)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var body struct {
		Error domain.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, "environment: test\n")

	w := doJSON(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	s.AddHealthCheck("database", func(context.Context) error { return errors.New("connection refused") })

	w = doJSON(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]interface{})["database"])
}

func TestServer_Estimate(t *testing.T) {
	s := newTestServer(t, "environment: test\n")

	w := doJSON(t, s.Handler(), http.MethodPost, "/estimate", scenarioEstimate)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.EstimateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "5500.00", resp.BaseTotal)
	assert.Equal(t, "6435.00", resp.PreInsuranceTotal)
	assert.Equal(t, "6435.00", resp.PatientResponsibility)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))

	t.Run("Persisted_Estimates_Unavailable", func(t *testing.T) {
		w := doJSON(t, s.Handler(), http.MethodGet, "/estimates/"+resp.ID, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, domain.ErrCodeNotFound, decodeError(t, w).Code)
	})
}

func TestServer_ErrorMapping(t *testing.T) {
	s := newTestServer(t, "environment: test\n")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
		field  string
	}{
		{"malformed json", http.MethodPost, "/estimate", `{"components": [`, http.StatusBadRequest, domain.ErrCodeInvalidInput, "body"},
		{"unknown urgency", http.MethodPost, "/estimate", strings.Replace(scenarioEstimate, "Routine", "Whenever", 1), http.StatusBadRequest, domain.ErrCodeInvalidInput, "urgency"},
		{"unknown plan", http.MethodGet, "/plans/Imaginary%20Assurance", "", http.StatusNotFound, domain.ErrCodePlanNotFound, ""},
		{"missing package", http.MethodPost, "/package/reconcile", `{"servicesUsed": []}`, http.StatusBadRequest, domain.ErrCodeInvalidInput, "package"},
		{"payments disabled", http.MethodPost, "/payments/initiate", `{"merchantUserId": "U1", "amount": 100}`, http.StatusBadGateway, domain.ErrCodePaymentGateway, ""},
		{"payment status disabled", http.MethodGet, "/payments/TX1/status", "", http.StatusBadGateway, domain.ErrCodePaymentGateway, ""},
		{"bad ledger kind", http.MethodGet, "/ledger?kind=refund", "", http.StatusBadRequest, domain.ErrCodeInvalidInput, "kind"},
		{"bad ledger limit", http.MethodGet, "/ledger?limit=many", "", http.StatusBadRequest, domain.ErrCodeInvalidInput, "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s.Handler(), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			apiErr := decodeError(t, w)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.field, apiErr.Field)
			assert.Equal(t, w.Header().Get("X-Correlation-ID"), apiErr.RequestID)
		})
	}
}

func TestServer_Adjudicate(t *testing.T) {
	s := newTestServer(t, "environment: test\n")

	w := doJSON(t, s.Handler(), http.MethodPost, "/adjudicate",
		`{"preInsuranceTotal": 6435, "insurancePlan": "Star Health Gold"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.AdjudicationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "3948.00", resp.InsuranceCoverage)
	assert.Equal(t, "2537.00", resp.PatientResponsibility)
}

func TestServer_ReconcileAndLedger(t *testing.T) {
	s := newTestServer(t, "environment: test\n")

	w := doJSON(t, s.Handler(), http.MethodPost, "/package/reconcile", `{
		"requestId": "episode-7",
		"package": {"name": "Day Care", "totalAmount": 2000, "discountedAmount": 1800},
		"servicesUsed": [{"name": "Procedure", "individualRate": 1500, "quantity": 1}]
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.ReconcileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Underutilized", resp.Status)

	w = doJSON(t, s.Handler(), http.MethodGet, "/ledger?kind=reconciliation", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page service.LedgerPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "episode-7", page.Entries[0].RequestID)
}

func TestServer_Catalog(t *testing.T) {
	s := newTestServer(t, "environment: test\n")

	w := doJSON(t, s.Handler(), http.MethodGet, "/plans", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Star Health Gold")

	w = doJSON(t, s.Handler(), http.MethodGet, "/plans/star%20health%20gold", "")
	require.Equal(t, http.StatusOK, w.Code)
	var plan service.PlanView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, "Star Health Gold", plan.Name)
	assert.Equal(t, "1500.00", plan.Deductible)

	w = doJSON(t, s.Handler(), http.MethodGet, "/packages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cardiac Checkup")
}

func TestServer_RateLimit(t *testing.T) {
	s := newTestServer(t, "environment: test\nserver:\n  rate_limit: 0.001\n  rate_burst: 1\n")
	defer s.limiter.Stop()

	assert.Equal(t, http.StatusOK, doJSON(t, s.Handler(), http.MethodGet, "/plans", "").Code)

	w := doJSON(t, s.Handler(), http.MethodGet, "/plans", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeError(t, w).Code)
}

func TestServer_EstimateStream(t *testing.T) {
	s := newTestServer(t, "environment: test\n")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/estimate"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	read := func() streamMessage {
		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(scenarioEstimate)))
	msg := read()
	assert.Equal(t, "estimate", msg.Type)
	require.NotNil(t, msg.Estimate)
	assert.Equal(t, "6435.00", msg.Estimate.PreInsuranceTotal)

	// Invalid JSON is answered and the stream stays usable.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = read()
	assert.Equal(t, "error", msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "body", msg.Error.Field)

	changed := strings.Replace(scenarioEstimate, `"Routine"`, `"Emergency"`, 1)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(changed)))
	msg = read()
	assert.Equal(t, "estimate", msg.Type)
	assert.Equal(t, "Emergency", msg.Estimate.Urgency)
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := newTestServer(t, "environment: test\nserver:\n  host: 127.0.0.1\n  port: 18089\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18089/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}
