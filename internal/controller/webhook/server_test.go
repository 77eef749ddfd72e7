package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/documents"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePayments struct {
	id     uuid.UUID
	paidAt time.Time
	err    error
}

func (f *fakePayments) CapturePayment(_ context.Context, id uuid.UUID, paidAt time.Time) (*model.Appointment, error) {
	f.id, f.paidAt = id, paidAt
	if f.err != nil {
		return nil, f.err
	}
	return &model.Appointment{ID: id, Status: model.StatusConfirmed}, nil
}

type fakeDocuments map[string]error

func (f fakeDocuments) Resolve(_ context.Context, token string) (string, error) {
	if err, ok := f[token]; ok {
		return "", err
	}
	return "https://store.example/documents/" + token, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestServer(payments *fakePayments, db fakePinger) *Server {
	docs := fakeDocuments{
		"old": &model.ResourceExpiredError{Resource: "document_link"},
		"bad": fmt.Errorf("%w: signature", documents.ErrInvalidLink),
		"done": &model.PermissionDeniedError{ActorID: 10, PatientID: 10, Capability: "view_records"},
	}
	return NewServer(":0", "s3cret", payments, docs, db, zap.NewNop())
}

func do(t *testing.T, s *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPaymentWebhook(t *testing.T) {
	payments := &fakePayments{}
	s := newTestServer(payments, fakePinger{})
	id := uuid.New()
	body := fmt.Sprintf(`{"appointment_id":%q,"paid_at":"2026-03-10T12:05:00+03:00"}`, id)

	rec := do(t, s, http.MethodPost, "/webhooks/payments", body, map[string]string{SecretHeader: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp paymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id.String(), resp.AppointmentID)
	assert.Equal(t, string(model.StatusConfirmed), resp.Status)
	assert.Equal(t, id, payments.id)
	assert.True(t, payments.paidAt.Equal(time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)))
}

func TestPaymentWebhookRejects(t *testing.T) {
	id := uuid.New()
	valid := fmt.Sprintf(`{"appointment_id":%q}`, id)
	secret := map[string]string{SecretHeader: "s3cret"}

	tests := []struct {
		name   string
		body   string
		header map[string]string
		err    error
		want   int
	}{
		{"missing secret", valid, nil, nil, http.StatusUnauthorized},
		{"wrong secret", valid, map[string]string{SecretHeader: "nope"}, nil, http.StatusUnauthorized},
		{"broken json", `{`, secret, nil, http.StatusBadRequest},
		{"bad id", `{"appointment_id":"x"}`, secret, nil, http.StatusUnprocessableEntity},
		{"bad paid_at", fmt.Sprintf(`{"appointment_id":%q,"paid_at":"10.03.2026"}`, id), secret, nil, http.StatusUnprocessableEntity},
		{"already paid", valid, secret, &model.IllegalTransitionError{From: model.StatusConfirmed}, http.StatusConflict},
		{"stale", valid, secret, &model.StaleResourceError{}, http.StatusConflict},
		{"unknown", valid, secret, fmt.Errorf("load: %w", model.ErrNotFound), http.StatusNotFound},
		{"internal", valid, secret, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakePayments{err: tt.err}, fakePinger{})
			rec := do(t, s, http.MethodPost, "/webhooks/payments", tt.body, tt.header)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestDocumentView(t *testing.T) {
	s := newTestServer(&fakePayments{}, fakePinger{})

	rec := do(t, s, http.MethodGet, "/documents/view?token=abc", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://store.example/documents/abc", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusGone, do(t, s, http.MethodGet, "/documents/view?token=old", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, s, http.MethodGet, "/documents/view?token=bad", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, s, http.MethodGet, "/documents/view?token=done", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/documents/view", "", nil).Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(&fakePayments{}, fakePinger{}), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = do(t, newTestServer(&fakePayments{}, fakePinger{err: errors.New("refused")}), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "refused")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusFor(&model.PermissionDeniedError{}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&model.ValidationError{Field: "x"}))
	assert.Equal(t, http.StatusGone, statusFor(&model.ResourceExpiredError{}))
}
