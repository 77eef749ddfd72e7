package family

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// FamilyScreen главный экран семейного доступа пользователя
func FamilyScreen(ctx context.Context, h *callbacktypes.Handler, user *model.User) (string, *models.InlineKeyboardMarkup, error) {
	issued, err := h.DelegationService.GrantsOfPatient(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	held, err := h.DelegationService.GrantsOfMember(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	var ids []int64
	for _, g := range issued {
		if g.MemberAccountID != nil {
			ids = append(ids, *g.MemberAccountID)
		}
	}
	for _, g := range held {
		ids = append(ids, g.PatientID)
	}
	names, err := h.UserService.DisplayNames(ctx, ids)
	if err != nil {
		return "", nil, err
	}

	text, kb := RenderFamily(issued, held, names)
	return text, kb, nil
}

// HandleHome fm_home
func HandleHome(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		showHome(hc)
	})
}

// HandleInvite fm_invite спрашивает, кем приходится приглашённый
func HandleInvite(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.Prompt(state.StateInviteRelationship, "👤 Кем вам приходится родственник? Например: мама, сын, супруг.")
	})
}

// HandleAccept fm_accept
func HandleAccept(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		hc.Prompt(state.StateEnteringInviteCode, "🔑 Введите код приглашения:")
	})
}

// HandleGrant fm_grant:ID
func HandleGrant(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		grantID, err := common.ParseID(callback.Data, CbGrant)
		if err != nil {
			hc.Fail("parse grant", err)
			return
		}
		g, err := findGrant(hc, grantID)
		if err != nil {
			hc.Fail("load grant", err)
			return
		}
		hc.Answer("")
		showGrant(hc, g)
	})
}

// HandleToggle fm_tgl:ID:CAPABILITY
func HandleToggle(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		args, err := common.CallbackArgs(callback.Data, CbToggle, 2)
		if err != nil {
			hc.Fail("parse toggle", err)
			return
		}
		grantID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			hc.Fail("parse toggle", common.ErrInvalidFormat)
			return
		}

		g, err := h.DelegationService.ToggleCapability(ctx, hc.User.ID, grantID, delegation.Capability(args[1]))
		if err != nil {
			hc.Fail("toggle capability", err)
			return
		}
		hc.Answer("")
		showGrant(hc, g)
	})
}

// HandleRevoke fm_rev:ID
func HandleRevoke(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		grantID, err := common.ParseID(callback.Data, CbRevoke)
		if err != nil {
			hc.Fail("parse grant", err)
			return
		}
		g, err := findGrant(hc, grantID)
		if err != nil {
			hc.Fail("load grant", err)
			return
		}
		text, kb := RenderRevokeConfirm(*g)
		hc.Answer("")
		hc.Show(text, kb)
	})
}

// HandleRevokeConfirm fm_rev_ok:ID
func HandleRevokeConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	common.WithUser(ctx, b, callback, h, func(hc *common.HandlerContext) {
		grantID, err := common.ParseID(callback.Data, CbRevokeOK)
		if err != nil {
			hc.Fail("parse grant", err)
			return
		}
		if err := h.DelegationService.Revoke(ctx, hc.User.ID, grantID); err != nil {
			hc.Fail("revoke grant", err)
			return
		}
		hc.Answer("🗑 Доступ отозван")
		text, kb, err := FamilyScreen(ctx, h, hc.User)
		if err != nil {
			hc.Fail("render family", err)
			return
		}
		hc.Show(text, kb)
	})
}

func showHome(hc *common.HandlerContext) {
	text, kb, err := FamilyScreen(hc.Ctx, hc.Handler, hc.User)
	if err != nil {
		hc.Fail("render family", err)
		return
	}
	hc.Answer("")
	hc.Show(text, kb)
}

func showGrant(hc *common.HandlerContext, g *model.DelegationGrant) {
	var memberName string
	if g.MemberAccountID != nil {
		names, err := hc.Handler.UserService.DisplayNames(hc.Ctx, []int64{*g.MemberAccountID})
		if err == nil {
			memberName = names[*g.MemberAccountID]
		}
	}
	text, kb := RenderGrant(*g, memberName)
	hc.Show(text, kb)
}

// findGrant грант среди выданных пользователем. Чужой грант не найдётся
func findGrant(hc *common.HandlerContext, grantID int64) (*model.DelegationGrant, error) {
	grants, err := hc.Handler.DelegationService.GrantsOfPatient(hc.Ctx, hc.User.ID)
	if err != nil {
		return nil, err
	}
	for i := range grants {
		if grants[i].ID == grantID {
			return &grants[i], nil
		}
	}
	return nil, fmt.Errorf("grant %d: %w", grantID, model.ErrNotFound)
}
