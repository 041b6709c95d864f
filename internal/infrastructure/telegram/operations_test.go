package telegram

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	apperrors "github.com/paradox-zenu/Aoi-SakamotoBot/internal/errors"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
)

// fakeRequester records every config Operations sends and can stall until
// the caller's context expires.
type fakeRequester struct {
	sent   []api.Chattable
	result json.RawMessage
	err    error
	stall  bool
}

func (f *fakeRequester) RequestWithContext(ctx context.Context, c api.Chattable) (*api.APIResponse, error) {
	if f.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.sent = append(f.sent, c)
	if f.err != nil {
		return nil, f.err
	}
	return &api.APIResponse{Ok: true, Result: f.result}, nil
}

func TestExecuteHonorsContextDeadline(t *testing.T) {
	t.Parallel()

	ops := &Operations{bot: &fakeRequester{stall: true}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := ops.Execute(ctx, moderation.Directive{Action: moderation.ActionBan, ChatID: -100, UserID: 777})
	if err == nil {
		t.Fatal("expected an error from an expired context")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("execute returned after %s, deadline was 20ms", elapsed)
	}
	if !errors.Is(err, apperrors.ErrPlatformTransient) {
		t.Fatalf("deadline error classified as %v, want transient", err)
	}
}

func TestExecuteMapsDirectivesToAPIConfigs(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{}
	ops := &Operations{bot: req}
	ctx := context.Background()

	directives := []moderation.Directive{
		{Action: moderation.ActionBan, ChatID: -100, UserID: 777},
		{Action: moderation.ActionUnban, ChatID: -100, UserID: 777},
		{Action: moderation.ActionMute, ChatID: -100, UserID: 777},
		{Action: moderation.ActionDeleteMessage, ChatID: -100, MessageID: 42},
		{Action: moderation.ActionPromote, ChatID: -100, UserID: 777},
		{Action: moderation.ActionDemote, ChatID: -100, UserID: 777},
		{Action: moderation.ActionPin, ChatID: -100, MessageID: 42},
		{Action: moderation.ActionUnpin, ChatID: -100},
		{Action: moderation.ActionUnpinAll, ChatID: -100},
		{Action: moderation.ActionSetTitle, ChatID: -100, Text: "Ops Room"},
		{Action: moderation.ActionSetDescription, ChatID: -100, Text: "On-call chatter"},
	}
	for _, d := range directives {
		if err := ops.Execute(ctx, d); err != nil {
			t.Fatalf("execute %s: %v", d.Action, err)
		}
	}
	if len(req.sent) != len(directives) {
		t.Fatalf("sent %d configs for %d directives", len(req.sent), len(directives))
	}

	if c, ok := req.sent[0].(api.BanChatMemberConfig); !ok || c.UserID != 777 {
		t.Fatalf("ban config: %#v", req.sent[0])
	}
	if c, ok := req.sent[1].(api.UnbanChatMemberConfig); !ok || !c.OnlyIfBanned {
		t.Fatalf("unban config: %#v", req.sent[1])
	}
	if c, ok := req.sent[2].(api.RestrictChatMemberConfig); !ok || c.Permissions == nil {
		t.Fatalf("mute config: %#v", req.sent[2])
	}
	if c, ok := req.sent[4].(api.PromoteChatMemberConfig); !ok || !c.CanRestrictMembers || c.CanPromoteMembers {
		t.Fatalf("promote config: %#v", req.sent[4])
	}
	if c, ok := req.sent[5].(api.PromoteChatMemberConfig); !ok || c.CanManageChat {
		t.Fatalf("demote config must revoke rights: %#v", req.sent[5])
	}
	if c, ok := req.sent[6].(api.PinChatMessageConfig); !ok || c.MessageID != 42 || !c.DisableNotification {
		t.Fatalf("pin config: %#v", req.sent[6])
	}
	if c, ok := req.sent[9].(api.SetChatTitleConfig); !ok || c.Title != "Ops Room" {
		t.Fatalf("set-title config: %#v", req.sent[9])
	}
	if c, ok := req.sent[10].(api.SetChatDescriptionConfig); !ok || c.Description != "On-call chatter" {
		t.Fatalf("set-description config: %#v", req.sent[10])
	}
}

func TestGetRoleDecodesMemberStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status string
		want   moderation.Role
	}{
		{"creator", moderation.RoleOwner},
		{"administrator", moderation.RoleAdmin},
		{"member", moderation.RoleMember},
		{"left", moderation.RoleNone},
		{"kicked", moderation.RoleNone},
	}
	for _, tc := range cases {
		req := &fakeRequester{result: json.RawMessage(`{"status":"` + tc.status + `","user":{"id":777}}`)}
		ops := &Operations{bot: req}

		role, err := ops.GetRole(context.Background(), -100, 777)
		if err != nil {
			t.Fatalf("%s: %v", tc.status, err)
		}
		if role != tc.want {
			t.Fatalf("status %s mapped to %s, want %s", tc.status, role, tc.want)
		}
	}
}

func TestClassifyBucketsPlatformErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		msg  string
		want error
	}{
		{"Bad Request: not enough rights to restrict/unrestrict chat member", apperrors.ErrPlatformPermanent},
		{"Bad Request: user is an administrator of the chat", apperrors.ErrPlatformPermanent},
		{"Bad Request: PARTICIPANT_ID_INVALID", apperrors.ErrNotFound},
		{"Too Many Requests: retry after 5", apperrors.ErrPlatformTransient},
	}
	for _, tc := range cases {
		if got := classify(errors.New(tc.msg)); !errors.Is(got, tc.want) {
			t.Fatalf("%q classified as %v", tc.msg, got)
		}
	}
}
