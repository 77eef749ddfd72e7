package family

import (
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/go-telegram/bot/models"
)

const (
	CbHome     = "fm_home"
	CbInvite   = "fm_invite"
	CbAccept   = "fm_accept"
	CbGrant    = "fm_grant:"  // fm_grant:ID
	CbToggle   = "fm_tgl:"    // fm_tgl:ID:capability
	CbRevoke   = "fm_rev:"    // fm_rev:ID
	CbRevokeOK = "fm_rev_ok:" // fm_rev_ok:ID
)

// DefaultInviteCapabilities права нового приглашения, дальше пациент настраивает их сам
func DefaultInviteCapabilities() delegation.CapabilitySet {
	return delegation.None().
		With(delegation.ViewAppointments, true).
		With(delegation.ManageAppointments, true)
}

// RenderFamily выданные пациентом доступы и доступы, полученные от других
func RenderFamily(issued, held []model.DelegationGrant, names map[int64]string) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("👨‍👩‍👧 <b>Семейный доступ</b>\n\n")

	kb := keyboard.NewBuilder()
	if len(issued) == 0 {
		sb.WriteString("Вы пока никому не выдали доступ.\n")
	} else {
		sb.WriteString("Доступ к вашим записям:\n")
		for _, g := range issued {
			kb.Row(keyboard.Button(grantLabel(g, names), fmt.Sprintf("%s%d", CbGrant, g.ID)))
		}
	}

	if len(held) > 0 {
		sb.WriteString("\nВы можете действовать за:\n")
		for _, g := range held {
			name := names[g.PatientID]
			if name == "" {
				name = fmt.Sprintf("пациент #%d", g.PatientID)
			}
			fmt.Fprintf(&sb, "• %s (%s)\n", html.EscapeString(name), html.EscapeString(relationship(g)))
		}
	}

	kb.Row(keyboard.Button("➕ Пригласить родственника", CbInvite))
	kb.Row(keyboard.Button("🔑 Ввести код приглашения", CbAccept))
	return sb.String(), kb.Build()
}

// RenderGrant настройка одного доступа
func RenderGrant(g model.DelegationGrant, memberName string) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 <b>%s</b>\n\n", html.EscapeString(relationship(g)))
	if g.IsPending() {
		fmt.Fprintf(&sb, "⏳ Ожидает принятия. Код приглашения: <code>%s</code>\n", g.InviteCode)
		sb.WriteString("Передайте код родственнику, он вводит его командой /accept.\n")
	} else if memberName != "" {
		fmt.Fprintf(&sb, "✅ Принято: %s\n", html.EscapeString(memberName))
	}
	sb.WriteString("\nНажмите на право, чтобы включить или выключить его:")

	caps := delegation.FromGrant(g)
	kb := keyboard.NewBuilder()
	for _, c := range delegation.AllCapabilities {
		mark := "⬜"
		if caps.Has(c) {
			mark = "✅"
		}
		kb.Row(keyboard.Button(mark+" "+formatting.GetCapabilityName(c), fmt.Sprintf("%s%d:%s", CbToggle, g.ID, c)))
	}
	kb.Row(keyboard.Button("🗑 Отозвать доступ", fmt.Sprintf("%s%d", CbRevoke, g.ID)))
	kb.AddBackButton(CbHome)
	return sb.String(), kb.Build()
}

// RenderRevokeConfirm вопрос перед отзывом
func RenderRevokeConfirm(g model.DelegationGrant) (string, *models.InlineKeyboardMarkup) {
	kb := keyboard.NewBuilder().
		Row(keyboard.ConfirmCancelButtons(
			fmt.Sprintf("%s%d", CbRevokeOK, g.ID),
			fmt.Sprintf("%s%d", CbGrant, g.ID),
		)...)
	text := fmt.Sprintf("❓ Отозвать доступ «%s»? Все права пропадут сразу.", html.EscapeString(relationship(g)))
	return text, kb.Build()
}

// RenderInviteCreated ответ на создание приглашения
func RenderInviteCreated(g model.DelegationGrant) string {
	return fmt.Sprintf("✅ Приглашение создано.\n\nКод: <code>%s</code>\n\n"+
		"Передайте его родственнику: /accept %s\nПрава можно изменить в /family.", g.InviteCode, g.InviteCode)
}

func grantLabel(g model.DelegationGrant, names map[int64]string) string {
	if g.IsPending() {
		return fmt.Sprintf("⏳ %s · код %s", relationship(g), g.InviteCode)
	}
	label := "👤 " + relationship(g)
	if g.MemberAccountID != nil {
		if name := names[*g.MemberAccountID]; name != "" {
			label += " · " + name
		}
	}
	return label
}

func relationship(g model.DelegationGrant) string {
	if g.Relationship == "" {
		return "Родственник"
	}
	return g.Relationship
}
