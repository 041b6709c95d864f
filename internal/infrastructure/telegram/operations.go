package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	apperrors "github.com/paradox-zenu/Aoi-SakamotoBot/internal/errors"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
)

// requester is the one bot API method Operations needs. Taking the
// narrow interface keeps the adapter testable without a live token.
type requester interface {
	RequestWithContext(ctx context.Context, c api.Chattable) (*api.APIResponse, error)
}

// Operations adapts the bot API to the engine's RoleSource and Executor
// contracts and maps platform errors onto the shared taxonomy. Every call
// goes through RequestWithContext so per-chat fan-out deadlines and
// shutdown cancellation actually bound the underlying HTTP request.
type Operations struct {
	bot requester
}

func NewOperations(bot *api.BotAPI) *Operations {
	return &Operations{bot: bot}
}

// GetRole fetches the member's current standing, never from a cache.
func (o *Operations) GetRole(ctx context.Context, chatID, userID int64) (moderation.Role, error) {
	resp, err := o.bot.RequestWithContext(ctx, api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
	if err != nil {
		return moderation.RoleNone, classify(err)
	}
	var member api.ChatMember
	if err := json.Unmarshal(resp.Result, &member); err != nil {
		return moderation.RoleNone, errors.WithMessage(err, "decode chat member")
	}

	switch {
	case member.IsCreator():
		return moderation.RoleOwner, nil
	case member.IsAdministrator():
		return moderation.RoleAdmin, nil
	case member.HasLeft(), member.WasKicked():
		return moderation.RoleNone, nil
	default:
		return moderation.RoleMember, nil
	}
}

// Execute performs one directive. Errors come back classified so callers
// can distinguish missing bot privilege from transient faults.
func (o *Operations) Execute(ctx context.Context, d moderation.Directive) error {
	switch d.Action {
	case moderation.ActionBan:
		return o.ban(ctx, d)
	case moderation.ActionUnban:
		return o.unban(ctx, d)
	case moderation.ActionMute:
		return o.mute(ctx, d)
	case moderation.ActionUnmute:
		return o.unmute(ctx, d)
	case moderation.ActionDeleteMessage:
		return o.deleteMessage(ctx, d)
	case moderation.ActionPromote:
		return o.promote(ctx, d)
	case moderation.ActionDemote:
		return o.demote(ctx, d)
	case moderation.ActionPin:
		return o.pin(ctx, d)
	case moderation.ActionUnpin:
		return o.unpin(ctx, d)
	case moderation.ActionUnpinAll:
		return o.unpinAll(ctx, d)
	case moderation.ActionSetTitle:
		return o.setTitle(ctx, d)
	case moderation.ActionSetDescription:
		return o.setDescription(ctx, d)
	default:
		return fmt.Errorf("unknown directive action %q", d.Action)
	}
}

func (o *Operations) ban(ctx context.Context, d moderation.Directive) error {
	config := api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: d.ChatID},
			UserID:     d.UserID,
		},
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "ban user")
	}
	return nil
}

func (o *Operations) unban(ctx context.Context, d moderation.Directive) error {
	config := api.UnbanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: d.ChatID},
			UserID:     d.UserID,
		},
		OnlyIfBanned: true,
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "unban user")
	}
	return nil
}

func (o *Operations) mute(ctx context.Context, d moderation.Directive) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: d.ChatID},
			UserID:     d.UserID,
		},
		Permissions: &api.ChatPermissions{},

		UseIndependentChatPermissions: true,
	}
	if !d.Until.IsZero() {
		config.UntilDate = d.Until.Unix()
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "restrict user")
	}
	return nil
}

func (o *Operations) unmute(ctx context.Context, d moderation.Directive) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: d.ChatID},
			UserID:     d.UserID,
		},
		Permissions: &api.ChatPermissions{
			CanSendMessages:       true,
			CanSendOtherMessages:  true,
			CanSendPolls:          true,
			CanAddWebPagePreviews: true,
			CanInviteUsers:        true,
		},
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "unrestrict user")
	}
	return nil
}

func (o *Operations) deleteMessage(ctx context.Context, d moderation.Directive) error {
	if _, err := o.bot.RequestWithContext(ctx, api.NewDeleteMessage(d.ChatID, d.MessageID)); err != nil {
		return errors.WithMessage(classify(err), "delete message")
	}
	return nil
}

// promote grants the working set of group-admin rights. Promotion rights
// themselves stay off so promoted admins cannot mint more admins.
func (o *Operations) promote(ctx context.Context, d moderation.Directive) error {
	config := api.PromoteChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: d.ChatID},
			UserID:     d.UserID,
		},
		CanManageChat:       true,
		CanChangeInfo:       true,
		CanDeleteMessages:   true,
		CanInviteUsers:      true,
		CanRestrictMembers:  true,
		CanPinMessages:      true,
		CanManageVideoChats: true,
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "promote user")
	}
	return nil
}

// demote is a promote with every right revoked.
func (o *Operations) demote(ctx context.Context, d moderation.Directive) error {
	config := api.PromoteChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: d.ChatID},
			UserID:     d.UserID,
		},
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "demote user")
	}
	return nil
}

func (o *Operations) pin(ctx context.Context, d moderation.Directive) error {
	config := api.PinChatMessageConfig{
		BaseChatMessage: api.BaseChatMessage{
			ChatConfig: api.ChatConfig{ChatID: d.ChatID},
			MessageID:  d.MessageID,
		},
		DisableNotification: true,
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "pin message")
	}
	return nil
}

func (o *Operations) unpin(ctx context.Context, d moderation.Directive) error {
	// a zero MessageID unpins the most recent pin
	config := api.UnpinChatMessageConfig{
		BaseChatMessage: api.BaseChatMessage{
			ChatConfig: api.ChatConfig{ChatID: d.ChatID},
			MessageID:  d.MessageID,
		},
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "unpin message")
	}
	return nil
}

func (o *Operations) unpinAll(ctx context.Context, d moderation.Directive) error {
	config := api.UnpinAllChatMessagesConfig{
		ChatConfig: api.ChatConfig{ChatID: d.ChatID},
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "unpin all messages")
	}
	return nil
}

func (o *Operations) setTitle(ctx context.Context, d moderation.Directive) error {
	config := api.SetChatTitleConfig{
		ChatConfig: api.ChatConfig{ChatID: d.ChatID},
		Title:      d.Text,
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "set chat title")
	}
	return nil
}

func (o *Operations) setDescription(ctx context.Context, d moderation.Directive) error {
	config := api.SetChatDescriptionConfig{
		ChatConfig:  api.ChatConfig{ChatID: d.ChatID},
		Description: d.Text,
	}
	if _, err := o.bot.RequestWithContext(ctx, config); err != nil {
		return errors.WithMessage(classify(err), "set chat description")
	}
	return nil
}

// classify buckets a bot API error into the taxonomy. The API reports
// everything as strings, so this is substring matching, same as the
// upstream client does internally.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not enough rights"),
		strings.Contains(msg, "can't remove chat owner"),
		strings.Contains(msg, "user is an administrator"):
		return errors.Wrap(apperrors.ErrPlatformPermanent, err.Error())
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "participant_id_invalid"),
		strings.Contains(msg, "user_id_invalid"):
		return errors.Wrap(apperrors.ErrNotFound, err.Error())
	default:
		return errors.Wrap(apperrors.ErrPlatformTransient, err.Error())
	}
}
