package handlers

import (
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
)

// extractTarget resolves the target of a moderation command: a replied-to
// message wins, otherwise the first argument must be a numeric user id.
// The remainder of the arguments becomes the reason.
func extractTarget(msg *api.Message) (int64, string) {
	args := strings.TrimSpace(msg.CommandArguments())
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From.ID, args
	}
	if args == "" {
		return 0, ""
	}
	fields := strings.Fields(args)
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, args
	}
	return id, strings.TrimSpace(strings.TrimPrefix(args, fields[0]))
}

// parseDuration understands the 5m/2h/1d shorthand used by mute commands.
func parseDuration(token string) (int64, bool) {
	if len(token) < 2 {
		return 0, false
	}
	value, err := strconv.ParseInt(token[:len(token)-1], 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	switch token[len(token)-1] {
	case 's':
		return value, true
	case 'm':
		return value * 60, true
	case 'h':
		return value * 3600, true
	case 'd':
		return value * 86400, true
	}
	return 0, false
}

func isPrivate(chat *api.Chat) bool {
	return chat != nil && chat.IsPrivate()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
