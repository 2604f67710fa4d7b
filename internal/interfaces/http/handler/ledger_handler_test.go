package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	appfinance "github.com/freteflow/backend/internal/application/finance"
	"github.com/freteflow/backend/internal/infrastructure/config"
	"github.com/freteflow/backend/internal/infrastructure/persistence"
	"github.com/freteflow/backend/internal/infrastructure/persistence/models"
	"github.com/freteflow/backend/internal/interfaces/http/middleware"
	"github.com/freteflow/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testScope carries the headers every scoped request needs
type testScope struct {
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	ActorID        uuid.UUID
}

func newTestServer(t *testing.T, name string) (*gin.Engine, testScope) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AccountPayableModel{},
		&models.PaymentModel{},
		&models.AccountReceivableModel{},
		&models.OutboxEntryModel{},
	))

	log := zap.NewNop()
	service := appfinance.NewLedgerService(
		persistence.NewGormAccountPayableRepository(db),
		persistence.NewGormAccountReceivableRepository(db),
		persistence.NewGormOutboxRepository(db),
		log,
	)

	cfg := &config.Config{}
	r := router.New(cfg, log)
	r.Register(NewPayableHandler(service, log))
	r.Register(NewReceivableHandler(service, log))
	r.Register(NewTaxHandler(service, log))

	scope := testScope{
		OrganizationID: uuid.New(),
		BranchID:       uuid.New(),
		ActorID:        uuid.New(),
	}
	return r.Setup(), scope
}

func doJSON(t *testing.T, engine *gin.Engine, scope testScope, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.OrganizationIDHeader, scope.OrganizationID.String())
	req.Header.Set(middleware.BranchIDHeader, scope.BranchID.String())
	req.Header.Set(middleware.ActorIDHeader, scope.ActorID.String())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func createPayableBody(documentNumber string) map[string]interface{} {
	return map[string]interface{}{
		"supplier_id":     uuid.NewString(),
		"document_number": documentNumber,
		"description":     "Diesel invoice",
		"terms": map[string]interface{}{
			"amount":   "1500.00",
			"due_date": "2026-10-15T00:00:00Z",
		},
	}
}

func TestPayableEndpoints_CreateAndGet(t *testing.T) {
	engine, scope := newTestServer(t, "payable_create")

	w := doJSON(t, engine, scope, "POST", "/api/v1/payables", createPayableBody("NF-1001"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "NF-1001", data["document_number"])
	assert.Equal(t, "OPEN", data["status"])
	assert.Equal(t, scope.OrganizationID.String(), data["organization_id"])

	id := data["id"].(string)
	w = doJSON(t, engine, scope, "GET", "/api/v1/payables/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NF-1001", decodeData(t, w)["document_number"])
}

func TestPayableEndpoints_DuplicateDocumentNumber(t *testing.T) {
	engine, scope := newTestServer(t, "payable_duplicate")

	w := doJSON(t, engine, scope, "POST", "/api/v1/payables", createPayableBody("NF-2001"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, scope, "POST", "/api/v1/payables", createPayableBody("NF-2001"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_DOCUMENT_NUMBER")
}

func TestPayableEndpoints_ValidationFailures(t *testing.T) {
	engine, scope := newTestServer(t, "payable_validation")

	t.Run("missing required fields", func(t *testing.T) {
		w := doJSON(t, engine, scope, "POST", "/api/v1/payables", map[string]interface{}{
			"description": "no supplier",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed currency", func(t *testing.T) {
		body := createPayableBody("NF-3001")
		body["terms"].(map[string]interface{})["currency"] = "brl"
		w := doJSON(t, engine, scope, "POST", "/api/v1/payables", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed payable ID", func(t *testing.T) {
		w := doJSON(t, engine, scope, "GET", "/api/v1/payables/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown payable", func(t *testing.T) {
		w := doJSON(t, engine, scope, "GET", "/api/v1/payables/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPayableEndpoints_SettlementCycle(t *testing.T) {
	engine, scope := newTestServer(t, "payable_settlement")

	w := doJSON(t, engine, scope, "POST", "/api/v1/payables", createPayableBody("NF-4001"))
	require.Equal(t, http.StatusCreated, w.Code)
	payableID := decodeData(t, w)["id"].(string)

	w = doJSON(t, engine, scope, "POST", "/api/v1/payables/"+payableID+"/payments", map[string]interface{}{
		"amount":         "1500.00",
		"method":         "PIX",
		"transaction_id": "tx-987",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	payments := data["payments"].([]interface{})
	require.Len(t, payments, 1)
	paymentID := payments[0].(map[string]interface{})["id"].(string)
	assert.Equal(t, "OPEN", data["status"])

	w = doJSON(t, engine, scope, "POST",
		"/api/v1/payables/"+payableID+"/payments/"+paymentID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PAID", decodeData(t, w)["status"])

	// A paid title cannot be cancelled
	w = doJSON(t, engine, scope, "POST", "/api/v1/payables/"+payableID+"/cancel", map[string]interface{}{
		"reason": "too late",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPayableEndpoints_List(t *testing.T) {
	engine, scope := newTestServer(t, "payable_list")

	for i := 1; i <= 3; i++ {
		w := doJSON(t, engine, scope, "POST", "/api/v1/payables",
			createPayableBody(fmt.Sprintf("NF-5%03d", i)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, engine, scope, "GET", "/api/v1/payables?page=1&page_size=2&status=OPEN", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Success bool                     `json:"success"`
		Data    []map[string]interface{} `json:"data"`
		Meta    map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	assert.EqualValues(t, 3, envelope.Meta["total"])
	assert.EqualValues(t, 2, envelope.Meta["total_pages"])

	t.Run("rejects unknown status", func(t *testing.T) {
		w := doJSON(t, engine, scope, "GET", "/api/v1/payables?status=BOGUS", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReceivableEndpoints_ReceiveFlow(t *testing.T) {
	engine, scope := newTestServer(t, "receivable_receive")

	w := doJSON(t, engine, scope, "POST", "/api/v1/receivables", map[string]interface{}{
		"customer_id":     uuid.NewString(),
		"document_number": "FAT-100",
		"description":     "Freight SP-RJ",
		"origin":          "MANUAL",
		"issue_date":      "2026-09-01T00:00:00Z",
		"terms": map[string]interface{}{
			"amount":   "800.00",
			"due_date": "2026-10-01T00:00:00Z",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	receivableID := decodeData(t, w)["id"].(string)

	w = doJSON(t, engine, scope, "POST", "/api/v1/receivables/"+receivableID+"/receive", map[string]interface{}{
		"amount":          "300.00",
		"bank_account_id": uuid.NewString(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "PARTIAL", data["status"])
	assert.Equal(t, "500", data["outstanding"])
}

func TestReceivableEndpoints_ScopeIsolation(t *testing.T) {
	engine, scope := newTestServer(t, "receivable_isolation")

	w := doJSON(t, engine, scope, "POST", "/api/v1/receivables", map[string]interface{}{
		"customer_id":     uuid.NewString(),
		"document_number": "FAT-200",
		"description":     "Freight",
		"origin":          "MANUAL",
		"issue_date":      "2026-09-01T00:00:00Z",
		"terms": map[string]interface{}{
			"amount":   "100.00",
			"due_date": "2026-10-01T00:00:00Z",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	receivableID := decodeData(t, w)["id"].(string)

	foreign := testScope{
		OrganizationID: uuid.New(),
		BranchID:       uuid.New(),
		ActorID:        uuid.New(),
	}
	w = doJSON(t, engine, foreign, "GET", "/api/v1/receivables/"+receivableID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScopedRoutesRequireHeaders(t *testing.T) {
	engine, _ := newTestServer(t, "scope_required")

	req := httptest.NewRequest("GET", "/api/v1/payables", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTaxEndpoints_Simulate(t *testing.T) {
	engine, scope := newTestServer(t, "tax_simulate")

	w := doJSON(t, engine, scope, "POST", "/api/v1/tax/withholding/simulate", map[string]interface{}{
		"gross_amount": "10000.00",
		"legal_entity": true,
		"service_type": "GENERAL",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "150", data["irrf"])
	assert.Equal(t, "65", data["pis"])
	assert.Equal(t, "300", data["cofins"])
	assert.Equal(t, "100", data["csll"])

	total := data["total_withholding"].(map[string]interface{})
	assert.Equal(t, "615", total["amount"])
	net := data["net_amount"].(map[string]interface{})
	assert.Equal(t, "9385", net["amount"])
}

func TestTaxEndpoints_FinalizeBilling(t *testing.T) {
	engine, scope := newTestServer(t, "tax_finalize")

	w := doJSON(t, engine, scope, "POST", "/api/v1/billing/finalize", map[string]interface{}{
		"customer_id":     uuid.NewString(),
		"document_number": "CTE-9001",
		"description":     "Freight billing",
		"gross_amount":    "10000.00",
		"due_date":        "2026-10-30T00:00:00Z",
		"legal_entity":    true,
		"service_type":    "GENERAL",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Receivable  map[string]interface{} `json:"receivable"`
			Withholding map[string]interface{} `json:"withholding"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)

	// 10000 - (150 IRRF + 65 PIS + 300 COFINS + 100 CSLL)
	assert.Equal(t, "9385", envelope.Data.Receivable["amount"])
	assert.Equal(t, "FREIGHT_BILLING", envelope.Data.Receivable["origin"])
	total := envelope.Data.Withholding["total_withholding"].(map[string]interface{})
	assert.Equal(t, "615", total["amount"])
}
