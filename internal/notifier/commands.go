package notifier

import (
	"strings"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
)

// CommandHandler is called when a user command is received and returns the
// reply text. An empty reply sends nothing.
type CommandHandler func(command string, args []string) string

// Commands lists the chat commands routed to the CommandHandler.
var Commands = []string{"/bands", "/latest", "/hold", "/release", "/holdings", "/poll", "/help"}

// RegisterCommands routes every known command and any unknown text from
// chatID to handler. Updates from any other chat are dropped.
func RegisterCommands(b *tele.Bot, chatID int64, handler CommandHandler, log zerolog.Logger) {
	gate := OnlyChat(chatID, log)
	for _, cmd := range Commands {
		cmd := cmd
		b.Handle(cmd, func(c tele.Context) error {
			return respond(c, handler, cmd, c.Args(), log)
		}, gate)
	}
	b.Handle(tele.OnText, func(c tele.Context) error {
		cmd, args := ParseCommand(c.Text())
		return respond(c, handler, cmd, args, log)
	}, gate)
}

// OnlyChat passes updates from chatID and silently drops the rest. It keys on
// the chat rather than the sender (middleware.Whitelist) so a group chat can
// be the operator chat.
func OnlyChat(chatID int64, log zerolog.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || chat.ID != chatID {
				ev := log.Warn()
				if chat != nil {
					ev = ev.Int64("chat_id", chat.ID)
				}
				ev.Msg("ignoring command from unauthorized chat")
				return nil
			}
			return next(c)
		}
	}
}

func respond(c tele.Context, handler CommandHandler, cmd string, args []string, log zerolog.Logger) error {
	log.Info().Str("command", cmd).Strs("args", args).Msg("received command")
	reply := handler(cmd, args)
	if reply == "" {
		return nil
	}
	return c.Send(reply, tele.ModeHTML)
}

// ParseCommand splits free text into a lower-case command and its arguments.
func ParseCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/bands@MyBot"
	}
	return cmd, fields[1:]
}
