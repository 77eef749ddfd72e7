package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// SecretHeader заголовок с общим секретом платёжного провайдера
const SecretHeader = "X-Webhook-Secret"

// PaymentCapturer фиксирует оплату записи
type PaymentCapturer interface {
	CapturePayment(ctx context.Context, id uuid.UUID, paidAt time.Time) (*model.Appointment, error)
}

// DocumentResolver превращает токен ссылки в адрес документа,
// если владелец ссылки всё ещё может видеть документ
type DocumentResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Pinger проверка доступности БД
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server HTTP сервер для внешних систем: оплата, просмотр документов, health check
type Server struct {
	echo      *echo.Echo
	addr      string
	secret    string
	payments  PaymentCapturer
	documents DocumentResolver
	db        Pinger
	logger    *zap.Logger
}

func NewServer(addr, secret string, payments PaymentCapturer, documents DocumentResolver, db Pinger, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}

	s := &Server{
		echo:      e,
		addr:      addr,
		secret:    secret,
		payments:  payments,
		documents: documents,
		db:        db,
		logger:    logger,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)

	e.POST("/webhooks/payments", s.handlePayment)
	e.GET("/documents/view", s.handleDocumentView)
	e.GET("/healthz", s.handleHealth)
	return s
}

// Handler для тестов и встраивания
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start блокирует до Shutdown
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Info("HTTP request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
		return nil
	}
}

// requestValidator проверяет тела запросов по тегам validate
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// statusFor переводит доменную ошибку в HTTP статус
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrStaleResource):
		return http.StatusConflict
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrResourceExpired):
		return http.StatusGone
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
