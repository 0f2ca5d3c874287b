// Package chat is the chat platform surface: mentions, direct messages and
// the slash command all become commands for the shared registry.
package chat

import (
	"context"
	"regexp"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/sourcegraph/conc/panics"

	"github.com/XiaoConstantine/robinrelay/internal/command"
)

// Apology is the reply when processing fails unexpectedly.
const Apology = "Sorry, I encountered an error processing your request."

var mentionMarkup = regexp.MustCompile(`<@[^>]+>`)

// Executor runs a parsed command.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) command.Result
}

// Adapter normalises chat input into commands. It knows nothing about the
// transport that delivered the message.
type Adapter struct {
	exec Executor
}

// NewAdapter creates a chat adapter.
func NewAdapter(exec Executor) *Adapter {
	return &Adapter{exec: exec}
}

// ProcessCommand parses text as a chat command from userID and returns the
// reply. It never panics.
func (a *Adapter) ProcessCommand(ctx context.Context, text, userID string) (reply string) {
	var catcher panics.Catcher
	catcher.Try(func() {
		cmd := command.ParseChat(text)
		cmd.UserID = userID
		if userID != "" {
			cmd.UserMention = "<@" + userID + ">"
		}
		reply = a.exec.Execute(ctx, cmd).Text
	})
	if recovered := catcher.Recovered(); recovered != nil {
		logging.GetLogger().Error(ctx, "Chat command %q from %s panicked: %v", text, userID, recovered.AsError())
		return Apology
	}
	return reply
}

// HandleMention processes a message that mentions the bot.
func (a *Adapter) HandleMention(ctx context.Context, text, userID string) string {
	return a.ProcessCommand(ctx, StripMentions(text), userID)
}

// HandleDirectMessage processes a direct message to the bot.
func (a *Adapter) HandleDirectMessage(ctx context.Context, text, userID string) string {
	return a.ProcessCommand(ctx, text, userID)
}

// HandleSlashCommand processes the text of a slash command. The transport
// must acknowledge the command before calling this.
func (a *Adapter) HandleSlashCommand(ctx context.Context, text, userID string) string {
	return a.ProcessCommand(ctx, text, userID)
}

// StripMentions removes user mention markup such as "<@U123>".
func StripMentions(text string) string {
	return strings.TrimSpace(mentionMarkup.ReplaceAllString(text, ""))
}
