package handler_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mealmail/internal/domain"
	"mealmail/internal/export"
	"mealmail/internal/handler"
	"mealmail/internal/trace"
	"mealmail/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWebhook_FormPayloadProcessed(t *testing.T) {
	svc := new(mocks.MockOrderService)
	h := handler.NewWebhookHandler(svc)

	expected := domain.RawEmail{Subject: "Order Confirmation", Sender: "Kevin <kevin@example.com>", Body: "<p>html</p>"}
	order := &domain.EnhancedOrder{ID: uuid.New(), Restaurant: "McDonald's"}
	svc.On("ProcessEmail", mock.Anything, expected).Return(order, nil)

	form := url.Values{
		"subject":    {"Order Confirmation"},
		"from":       {"Kevin <kevin@example.com>"},
		"body-plain": {"plain"},
		"body-html":  {"<p>html</p>"},
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/webhook/email", strings.NewReader(form.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	h.Receive(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	svc.AssertExpectations(t)
}

func TestWebhook_JSONPayloadPrefersSender(t *testing.T) {
	svc := new(mocks.MockOrderService)
	h := handler.NewWebhookHandler(svc)

	expected := domain.RawEmail{Subject: "s", Sender: "a@doordash.com", Body: "plain body"}
	svc.On("ProcessEmail", mock.Anything, expected).Return(&domain.EnhancedOrder{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/webhook/email",
		strings.NewReader(`{"subject":"s","sender":"a@doordash.com","from":"b@x.com","body-plain":"plain body"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Receive(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestWebhook_RejectedEmailIsIgnored(t *testing.T) {
	svc := new(mocks.MockOrderService)
	h := handler.NewWebhookHandler(svc)
	svc.On("ProcessEmail", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: exclusion term %q", domain.ErrNotOrderConfirmation, "password"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/webhook/email", strings.NewReader(`{"subject":"Reset your password","body":"x"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Receive(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data handler.IgnoredResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp.Data.Status)
	assert.Contains(t, resp.Data.Reason, "password")
}

func TestWebhook_ErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL"},
		{domain.ErrExtractionFailed, http.StatusUnprocessableEntity, "EXTRACTION_FAILED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{context.Canceled, handler.StatusClientClosedRequest, "REQUEST_CANCELED"},
		{fmt.Errorf("resolving items: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc := new(mocks.MockOrderService)
			h := handler.NewWebhookHandler(svc)
			svc.On("ProcessEmail", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodPost, "/webhook/email", strings.NewReader(`{"subject":"s","body":"b"}`))
			c.Request.Header.Set("Content-Type", "application/json")

			h.Receive(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestWebhook_EmptyPayload(t *testing.T) {
	svc := new(mocks.MockOrderService)
	h := handler.NewWebhookHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/webhook/email", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Receive(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ProcessEmail", mock.Anything, mock.Anything)
}

func TestOrderHandler_List(t *testing.T) {
	svc := new(mocks.MockOrderService)
	h := handler.NewOrderHandler(svc)
	svc.On("ListOrders", mock.Anything, 10, 5).Return([]domain.EnhancedOrder{{ID: uuid.New()}}, 11, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/orders?offset=10&limit=5", http.NoBody)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, handler.PagMeta{Total: 11, Offset: 10, Limit: 5}, *resp.Meta)
}

func TestOrderHandler_GetByID(t *testing.T) {
	svc := new(mocks.MockOrderService)
	h := handler.NewOrderHandler(svc)
	id := uuid.New()
	svc.On("GetOrder", mock.Anything, id).Return(nil, domain.ErrOrderNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/orders/"+id.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", decode(t, w).Error.Code)
}

func TestOrderHandler_GetByID_InvalidID(t *testing.T) {
	h := handler.NewOrderHandler(new(mocks.MockOrderService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/orders/nope", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_ExportCSV_Paginates(t *testing.T) {
	svc := new(mocks.MockOrderService)
	h := handler.NewOrderHandler(svc)

	page := make([]domain.EnhancedOrder, 200)
	for i := range page {
		page[i] = domain.EnhancedOrder{ID: uuid.New(), Restaurant: "Diner"}
	}
	svc.On("ListOrders", mock.Anything, 0, 200).Return(page, 201, nil)
	svc.On("ListOrders", mock.Anything, 200, 200).Return([]domain.EnhancedOrder{{ID: uuid.New(), Restaurant: "Last"}}, 201, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/orders/export/csv", http.NoBody)

	h.ExportCSV(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "orders_")

	body := w.Body.Bytes()
	assert.Equal(t, export.BOM, body[:3])
	records, err := csv.NewReader(strings.NewReader(string(body[3:]))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 202)
	assert.Equal(t, "Last", records[201][3])
	svc.AssertExpectations(t)
}

func TestTraceHandler(t *testing.T) {
	log := trace.NewLog(10)
	log.Record(trace.Event{Stage: trace.StageClassify, Name: "decision", Matched: true})
	log.Record(trace.Event{Stage: trace.StageExtract, Name: "restaurant/subject_order_confirmation", Matched: true})
	h := handler.NewTraceHandler(log)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/trace?stage=extract", http.NoBody)
	h.List(c)

	var resp struct {
		Data []trace.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, trace.StageExtract, resp.Data[0].Stage)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/api/v1/trace", http.NoBody)
	h.Reset(c)
	assert.Empty(t, log.Events())
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		db     handler.Pinger
		status int
	}{
		{"no database", nil, http.StatusOK},
		{"database up", fakePinger{}, http.StatusOK},
		{"database down", fakePinger{err: errors.New("refused")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(tt.db)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodGet, "/readyz", http.NoBody)
			h.Readiness(c)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
