// Package chat turns a line typed to the bot into a bullet operation.
// Lines starting with "." are commands; anything else is a new bullet.
package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"bulletbot/internal/bullet"
	"bulletbot/internal/logging"
)

const HelpMessage = `To use me, just talk to me throughout the day. Each time you hit
enter, I'll add a bullet. Bullets are sent out every evening. If you
have any bullets that did not make the deadline, they will be sent the
following day.

Commands:
   .list                      - list unsent bullets
   .delete <no.> [<no. 2>]    - delete unsent bullets
   .register <name>           - register the name to use on your bullets

That's it!`

const (
	UnknownCommand = "Sorry, I don't know that command"
	Apology        = "Sorry, something went wrong. Please try again later."
)

type Router struct {
	Bullets *bullet.Service
	Log     logging.Logger
}

func NewRouter(svc *bullet.Service, log logging.Logger) *Router {
	return &Router{Bullets: svc, Log: log}
}

// Handle runs one chat line for nick and returns the reply. A blank line
// gets no reply. On a fault the reply is Apology and the error is returned
// for the caller to log.
func (r *Router) Handle(ctx context.Context, nick, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	cmd, rest := splitCommand(line)

	var (
		resp string
		err  error
	)
	switch strings.ToLower(cmd) {
	case ".list", ".ls":
		resp, err = r.Bullets.ListNotes(ctx, nick)
	case ".delete", ".rm":
		resp, err = r.Bullets.DeleteNotes(ctx, nick, rest)
	case ".register":
		resp, err = r.Bullets.RegisterDisplayName(ctx, nick, rest)
	case ".help", "help", ".commands", "commands":
		resp = HelpMessage
	default:
		if strings.HasPrefix(cmd, ".") {
			r.Log.Info(ctx, "unknown command", "nick", nick, "cmd", cmd)
			return UnknownCommand + "\n" + HelpMessage, nil
		}
		resp, err = r.Bullets.CreateNote(ctx, nick, line)
	}
	if err != nil {
		return Apology, fmt.Errorf("chat %s for %q: %w", cmd, nick, err)
	}
	return resp, nil
}

func splitCommand(line string) (cmd, rest string) {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}
