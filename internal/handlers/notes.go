package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/handlers/base"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/policy/permissions"
)

// Notes stores named snippets per chat and replays them on /get or the
// #name shorthand.
type Notes struct {
	*base.Handler
	perms *permissions.Evaluator
}

func NewNotes(service bot.Service, perms *permissions.Evaluator, executor moderation.Executor) *Notes {
	return &Notes{
		Handler: base.NewHandler(service, executor, "notes"),
		perms:   perms,
	}
}

func (h *Notes) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	msg := u.Message
	if msg == nil {
		return true, nil
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "save":
			return false, h.save(ctx, msg, chat, user)
		case "get":
			return false, h.get(ctx, msg, chat)
		case "clear":
			return false, h.clear(ctx, msg, chat, user)
		case "notes", "saved":
			return false, h.list(ctx, msg, chat)
		}
		return true, nil
	}

	// #name shorthand
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "#") && len(text) > 1 && !strings.ContainsAny(text, " \n") {
		h.send(ctx, msg, chat, text[1:])
		return false, nil
	}
	return true, nil
}

func (h *Notes) save(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user) {
		return nil
	}
	name, content := splitNoteArgs(msg.CommandArguments())
	if name == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /save [name] [content], or reply to a message with /save [name].")
		return nil
	}
	if content == "" && msg.ReplyToMessage != nil {
		content = msg.ReplyToMessage.Text
		if content == "" {
			content = msg.ReplyToMessage.Caption
		}
	}
	if content == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "There is nothing to save.")
		return nil
	}

	note := &db.Note{
		ChatID:    chat.ID,
		Name:      strings.ToLower(name),
		Content:   content,
		CreatedBy: user.ID,
	}
	if err := h.Service().GetDB().SaveNote(ctx, note); err != nil {
		h.Logger().WithError(err).Error("cant save note")
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("Saved note <code>%s</code>.", html.EscapeString(note.Name)))
	return nil
}

func (h *Notes) get(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /get [name]")
		return nil
	}
	h.send(ctx, msg, chat, name)
	return nil
}

func (h *Notes) send(ctx context.Context, msg *api.Message, chat *api.Chat, name string) {
	note, err := h.Service().GetDB().GetNote(ctx, chat.ID, strings.ToLower(name))
	if err != nil {
		h.Logger().WithError(err).Error("cant load note")
		return
	}
	if note == nil {
		h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("No note named <code>%s</code>.", html.EscapeString(name)))
		return
	}
	h.ReplyHTML(chat.ID, msg.MessageID, html.EscapeString(note.Content))
}

func (h *Notes) clear(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user) {
		return nil
	}
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /clear [name]")
		return nil
	}
	existed, err := h.Service().GetDB().DeleteNote(ctx, chat.ID, strings.ToLower(name))
	if err != nil {
		h.Logger().WithError(err).Error("cant delete note")
		return nil
	}
	if !existed {
		h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("No note named <code>%s</code>.", html.EscapeString(name)))
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("Removed note <code>%s</code>.", html.EscapeString(strings.ToLower(name))))
	return nil
}

func (h *Notes) list(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	notes, err := h.Service().GetDB().GetNotes(ctx, chat.ID)
	if err != nil {
		h.Logger().WithError(err).Error("cant list notes")
		return nil
	}
	if len(notes) == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "There are no saved notes in this chat.")
		return nil
	}
	var b strings.Builder
	b.WriteString("<b>Notes in this chat:</b>\n")
	for _, note := range notes {
		fmt.Fprintf(&b, " • <code>%s</code>\n", html.EscapeString(note.Name))
	}
	b.WriteString("\nGet one with <code>/get name</code> or <code>#name</code>.")
	h.ReplyHTML(chat.ID, msg.MessageID, b.String())
	return nil
}

func (h *Notes) authorize(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) bool {
	decision := h.perms.Authorize(ctx, user.ID, permissions.ChatRef{ID: chat.ID, Private: isPrivate(chat)}, permissions.CapManageNotes)
	if !decision.Allowed {
		h.ReplyHTML(chat.ID, msg.MessageID, base.DenyMessage(decision.Reason))
		return false
	}
	return true
}

func splitNoteArgs(args string) (name, content string) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", ""
	}
	parts := strings.SplitN(args, " ", 2)
	name = parts[0]
	if len(parts) == 2 {
		content = strings.TrimSpace(parts[1])
	}
	return name, content
}
