package callbacktypes

import (
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/service"
	"go.uber.org/zap"
)

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	UserService        *service.UserService
	AppointmentService *service.AppointmentService
	DelegationService  *service.DelegationService
	DoctorService      *service.DoctorService
	DocumentService    *service.DocumentService
	StateManager       *state.Manager
	Logger             *zap.Logger

	// PaymentURL адрес страницы оплаты, к нему добавляется ?appointment=<id>
	PaymentURL     string
	BookingHorizon time.Duration
	Now            func() time.Time
}
