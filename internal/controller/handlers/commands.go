package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/appointment"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/doctor"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/family"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/patient"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"Для пациентов:\n" +
	"/book - Записаться к врачу\n" +
	"/appointments - Мои записи\n" +
	"/family - Семейный доступ\n" +
	"/invite - Пригласить родственника\n" +
	"/accept КОД - Принять приглашение\n" +
	"/cancel - Прервать текущее действие\n\n" +
	"Для врачей:\n" +
	"/becomedoctor - Зарегистрироваться врачом\n" +
	"/myslots - Расписание и слоты"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From

	// Регистрируем пользователя
	user, err := h.UserService.RegisterUser(ctx, service.Profile{
		TelegramID:   from.ID,
		Username:     from.Username,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
	})
	if err != nil {
		h.Logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcome := fmt.Sprintf("👋 Здравствуйте, %s!\n\n"+
		"Здесь можно записаться на онлайн-консультацию или очный приём, "+
		"оплатить запись и подключиться к звонку.\n\n%s",
		html.EscapeString(user.FirstName), helpText)
	h.sendMessage(ctx, b, update.Message.Chat.ID, welcome, nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога и мастера записи
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !h.StateManager.Reset(update.Message.From.ID) {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.", nil)
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.", nil)
}

// HandleBook /book начинает мастер записи
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	actor, err := h.actor(ctx, user)
	if err != nil {
		h.fail(ctx, b, chatID, "resolve actor", err)
		return
	}

	h.StateManager.ClearState(user.TelegramID)
	h.StateManager.StartBooking(user.TelegramID, patient.NewOrchestrator(h.Handler, actor))

	text, kb, err := patient.BookingScreen(ctx, h.Handler, user.TelegramID)
	h.screen(ctx, b, chatID, "render booking", text, kb, err)
}

// HandleAppointments /appointments
func (h *Handlers) HandleAppointments(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	actor, err := h.actor(ctx, user)
	if err != nil {
		h.fail(ctx, b, chatID, "resolve actor", err)
		return
	}
	text, kb, err := appointment.ListScreen(ctx, h.Handler, actor, 0)
	h.screen(ctx, b, chatID, "list appointments", text, kb, err)
}

// HandleFamily /family
func (h *Handlers) HandleFamily(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	text, kb, err := family.FamilyScreen(ctx, h.Handler, user)
	h.screen(ctx, b, update.Message.Chat.ID, "render family", text, kb, err)
}

// HandleInvite /invite начинает создание приглашения
func (h *Handlers) HandleInvite(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	h.StateManager.SetState(user.TelegramID, state.StateInviteRelationship)
	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"👤 Кем вам приходится родственник? Например: мама, сын, супруг.\n\nОтменить: /cancel", nil)
}

// HandleAccept /accept [КОД]. Без кода спрашивает его отдельным сообщением
func (h *Handlers) HandleAccept(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	code := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/accept"))
	if code == "" {
		h.StateManager.SetState(user.TelegramID, state.StateEnteringInviteCode)
		h.sendMessage(ctx, b, update.Message.Chat.ID, "🔑 Введите код приглашения:\n\nОтменить: /cancel", nil)
		return
	}
	h.acceptInvite(ctx, b, update.Message.Chat.ID, user.ID, code)
}

// HandleBecomeDoctor /becomedoctor регистрация или обновление профиля врача
func (h *Handlers) HandleBecomeDoctor(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	intro := "👨‍⚕️ Регистрация врача\n\n"
	if user.IsDoctor() {
		intro = "👨‍⚕️ Обновление профиля врача\n\n"
	}

	h.StateManager.SetState(user.TelegramID, state.StateDoctorFullName)
	h.sendMessage(ctx, b, update.Message.Chat.ID,
		intro+"Шаг 1 из 3: Введите ФИО, как его увидят пациенты.\n\nОтменить: /cancel", nil)
}

// HandleMySlots /myslots расписание врача
func (h *Handlers) HandleMySlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireDoctor(ctx, b, update)
	if !ok {
		return
	}
	text, kb, err := doctor.ScheduleScreen(ctx, h.Handler, user.ID)
	h.screen(ctx, b, update.Message.Chat.ID, "render schedule", text, kb, err)
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Игнорируем команды (они обрабатываются другими handlers)
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.StateManager.GetState(telegramID)

	// Если нет активного состояния, игнорируем
	if currentState == state.StateNone {
		h.Logger.Debug("No active state, ignoring message",
			zap.Int64("telegram_id", telegramID))
		return
	}

	h.Logger.Debug("Handling dialog step",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)))

	// Обрабатываем в зависимости от состояния
	switch currentState {
	case state.StateBookingReason, state.StateBookingNotes:
		h.handleBookingText(ctx, b, update, currentState)
	case state.StateEditReason:
		h.handleEditReason(ctx, b, update)
	case state.StateCancelReason:
		h.handleCancelReason(ctx, b, update)
	case state.StateCompleteNotes:
		h.handleCompleteNotes(ctx, b, update)
	case state.StateInviteRelationship:
		h.handleInviteRelationship(ctx, b, update)
	case state.StateEnteringInviteCode:
		h.handleEnteringInviteCode(ctx, b, update)
	case state.StateDoctorFullName:
		h.handleDoctorFullName(ctx, b, update)
	case state.StateDoctorSpecialty:
		h.handleDoctorSpecialty(ctx, b, update)
	case state.StateDoctorTimezone:
		h.handleDoctorTimezone(ctx, b, update)
	case state.StateAddSlot:
		h.handleAddSlot(ctx, b, update)
	case state.StateAddWeeklySlot:
		h.handleAddWeeklySlot(ctx, b, update)
	default:
		h.Logger.Warn("Unknown state", zap.String("state", string(currentState)))
		h.StateManager.ClearState(telegramID)
	}
}
