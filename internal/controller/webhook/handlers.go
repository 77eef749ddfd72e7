package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/documents"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type paymentRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	PaidAt        string `json:"paid_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type paymentResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

// handlePayment POST /webhooks/payments
func (s *Server) handlePayment(c echo.Context) error {
	if s.secret == "" || subtle.ConstantTimeCompare([]byte(c.Request().Header.Get(SecretHeader)), []byte(s.secret)) != 1 {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid webhook secret"})
	}

	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody(err))
	}

	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "invalid appointment_id"})
	}
	// Пустой paid_at: момент оплаты определит сервис
	var paidAt time.Time
	if req.PaidAt != "" {
		if paidAt, err = time.Parse(time.RFC3339, req.PaidAt); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "paid_at must be RFC 3339"})
		}
	}

	a, err := s.payments.CapturePayment(c.Request().Context(), id, paidAt)
	if err != nil {
		s.logger.Warn("Payment capture rejected",
			zap.String("appointment_id", id.String()),
			zap.Error(err))
		return c.JSON(statusFor(err), errorBody(err))
	}

	s.logger.Info("Payment captured",
		zap.String("appointment_id", a.ID.String()),
		zap.String("status", string(a.Status)))
	return c.JSON(http.StatusOK, paymentResponse{AppointmentID: a.ID.String(), Status: string(a.Status)})
}

// handleDocumentView GET /documents/view?token=
func (s *Server) handleDocumentView(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "token is required"})
	}

	location, err := s.documents.Resolve(c.Request().Context(), token)
	if errors.Is(err, documents.ErrInvalidLink) {
		return c.JSON(http.StatusForbidden, errorBody(err))
	}
	if err != nil {
		return c.JSON(statusFor(err), errorBody(err))
	}
	return c.Redirect(http.StatusFound, location)
}

// handleHealth GET /healthz
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
