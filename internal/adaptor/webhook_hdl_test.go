package adaptor

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tutor-booking/internal/data/entity"
	"tutor-booking/internal/dto/request"
	"tutor-booking/internal/dto/response"
	"tutor-booking/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) CreateCheckout(ctx context.Context, req *request.CreateCheckoutRequest) (*response.CheckoutResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.CheckoutResponse), args.Error(1)
}

func (m *mockPaymentService) GetUserOrders(ctx context.Context, payerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.PaymentOrderResponse], error) {
	args := m.Called(ctx, payerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*response.PaginatedResponse[response.PaymentOrderResponse]), args.Error(1)
}

func (m *mockPaymentService) HandleWebhookEvent(ctx context.Context, orderCode, reportedStatus string, rawPayload []byte) error {
	args := m.Called(ctx, orderCode, reportedStatus, rawPayload)
	return args.Error(0)
}

func (m *mockPaymentService) SweepExpiredOrders(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *mockPaymentService) SweepAbandonedSlots(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

const testChecksumKey = "test-checksum-key"

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testChecksumKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookFixture(t *testing.T) (*WebhookHandler, *mockPaymentService) {
	t.Helper()

	service := new(mockPaymentService)
	verifier := gateway.NewClient(gateway.Config{ChecksumKey: testChecksumKey}, zap.NewNop())
	return NewWebhookHandler(service, verifier, zap.NewNop()), service
}

func postWebhook(handler *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("x-signature", signature)
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)
	return rec
}

func TestHandleEvent_ValidSignature(t *testing.T) {
	handler, service := newWebhookFixture(t)
	body := []byte(`{"orderCode":"ORD-20260901-120000-0042","status":"PAID"}`)
	service.On("HandleWebhookEvent", mock.Anything, "ORD-20260901-120000-0042", "PAID", body).Return(nil)

	rec := postWebhook(handler, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestHandleEvent_InvalidSignatureAckedWithoutProcessing(t *testing.T) {
	handler, service := newWebhookFixture(t)
	body := []byte(`{"orderCode":"ORD-1","status":"PAID"}`)

	rec := postWebhook(handler, body, "deadbeef")

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertNotCalled(t, "HandleWebhookEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_TamperedBodyRejected(t *testing.T) {
	handler, service := newWebhookFixture(t)
	body := []byte(`{"orderCode":"ORD-1","status":"PAID"}`)
	signature := signBody(body)
	tampered := []byte(`{"orderCode":"ORD-1","status":"FAILED"}`)

	rec := postWebhook(handler, tampered, signature)

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertNotCalled(t, "HandleWebhookEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_MalformedJSONAcked(t *testing.T) {
	handler, service := newWebhookFixture(t)
	body := []byte(`{not json`)

	rec := postWebhook(handler, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertNotCalled(t, "HandleWebhookEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_MissingFieldsAcked(t *testing.T) {
	handler, service := newWebhookFixture(t)
	body := []byte(`{"orderCode":"","status":"PAID"}`)

	rec := postWebhook(handler, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertNotCalled(t, "HandleWebhookEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_DiscardedEventStillAcks(t *testing.T) {
	handler, service := newWebhookFixture(t)
	body := []byte(`{"orderCode":"ORD-GONE","status":"PAID"}`)
	service.On("HandleWebhookEvent", mock.Anything, "ORD-GONE", "PAID", body).
		Return(fmt.Errorf("order ORD-GONE: %w", entity.ErrPaymentNotFound))

	rec := postWebhook(handler, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "acknowledged")
	service.AssertExpectations(t)
}

func TestHandleEvent_ReplayedEventStillAcks(t *testing.T) {
	handler, service := newWebhookFixture(t)
	body := []byte(`{"orderCode":"ORD-3","status":"PAID"}`)
	service.On("HandleWebhookEvent", mock.Anything, "ORD-3", "PAID", body).
		Return(fmt.Errorf("order ORD-3 already paid: %w", entity.ErrDuplicateEvent))

	rec := postWebhook(handler, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestHandleEvent_ServiceErrorStillAcks(t *testing.T) {
	handler, service := newWebhookFixture(t)
	body := []byte(`{"orderCode":"ORD-2","status":"FAILED"}`)
	service.On("HandleWebhookEvent", mock.Anything, "ORD-2", "FAILED", body).Return(errors.New("db down"))

	rec := postWebhook(handler, body, signBody(body))

	// Internal failures never surface to the sender; redelivery plus
	// idempotent reconciliation covers them.
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "acknowledged")
	service.AssertExpectations(t)
}
