package chat

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/sourcegraph/conc"
)

// poster is the part of the Slack Web API used for replies.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SocketListener receives Slack events over Socket Mode and answers them
// through the Adapter.
type SocketListener struct {
	adapter *Adapter
	client  *socketmode.Client
	api     poster

	ack         func(req socketmode.Request)
	postWebhook func(ctx context.Context, url string, msg *slack.WebhookMessage) error

	// command is the slash command answered; others are acknowledged and
	// ignored. Empty accepts any command.
	command string

	// botUserID keeps the bot from answering its own direct messages.
	botUserID string

	tasks conc.WaitGroup
}

// SocketConfig holds the Slack credentials and the slash command to answer.
type SocketConfig struct {
	BotToken string
	AppToken string
	Command  string
	Debug    bool
}

// NewSocketListener connects adapter to Slack using a bot token and an
// app-level token. opts are passed to the Web API client.
func NewSocketListener(adapter *Adapter, cfg SocketConfig, opts ...slack.Option) *SocketListener {
	opts = append([]slack.Option{slack.OptionAppLevelToken(cfg.AppToken), slack.OptionDebug(cfg.Debug)}, opts...)
	api := slack.New(cfg.BotToken, opts...)
	client := socketmode.New(api, socketmode.OptionDebug(cfg.Debug))

	return &SocketListener{
		adapter: adapter,
		client:  client,
		api:     api,
		ack: func(req socketmode.Request) {
			client.Ack(req)
		},
		postWebhook: slack.PostWebhookContext,
		command:     cfg.Command,
	}
}

// Run processes events until ctx is cancelled or the Socket Mode connection
// fails, then waits for in-flight replies. Cancellation is not an error.
func (l *SocketListener) Run(ctx context.Context) error {
	logger := logging.GetLogger()

	auth, err := l.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	l.botUserID = auth.UserID
	logger.Info(ctx, "Connected to Slack workspace %s as %s", auth.Team, auth.User)

	// The client never closes Events, so the loop stops on its own context.
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	l.tasks.Go(func() {
		for {
			select {
			case <-loopCtx.Done():
				return
			case evt, ok := <-l.client.Events:
				if !ok {
					return
				}
				l.tasks.Go(func() {
					l.handle(ctx, evt)
				})
			}
		}
	})

	err = l.client.RunContext(ctx)
	stopLoop()
	l.tasks.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		logger.Error(ctx, "Slack Socket Mode connection failed: %v", err)
		return fmt.Errorf("slack socket mode: %w", err)
	}
	return nil
}

func (l *SocketListener) handle(ctx context.Context, evt socketmode.Event) {
	logger := logging.GetLogger()

	id := uuid.NewString()
	if evt.Request != nil && evt.Request.EnvelopeID != "" {
		id = evt.Request.EnvelopeID
	}
	logger.Debug(ctx, "[%s] Slack event %s", id, evt.Type)

	switch evt.Type {
	case socketmode.EventTypeConnecting:
		logger.Info(ctx, "Connecting to Slack with Socket Mode...")
	case socketmode.EventTypeConnected:
		logger.Info(ctx, "Connected to Slack with Socket Mode")
	case socketmode.EventTypeConnectionError:
		logger.Warn(ctx, "Slack connection failed, retrying")

	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			l.ack(*evt.Request)
		}
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || apiEvent.Type != slackevents.CallbackEvent {
			return
		}
		l.handleCallback(ctx, apiEvent.InnerEvent)

	case socketmode.EventTypeSlashCommand:
		// Slack expects the acknowledgement within three seconds; the reply
		// follows through the response URL.
		if evt.Request != nil {
			l.ack(*evt.Request)
		}
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		l.handleSlashCommand(ctx, cmd)

	default:
		logger.Debug(ctx, "Ignoring Slack event %s", evt.Type)
	}
}

func (l *SocketListener) handleCallback(ctx context.Context, inner slackevents.EventsAPIInnerEvent) {
	switch ev := inner.Data.(type) {
	case *slackevents.AppMentionEvent:
		reply := l.adapter.HandleMention(ctx, ev.Text, ev.User)
		l.post(ctx, ev.Channel, ev.ThreadTimeStamp, reply)

	case *slackevents.MessageEvent:
		if ev.ChannelType != "im" || ev.BotID != "" || ev.SubType != "" || ev.User == "" || ev.User == l.botUserID {
			return
		}
		reply := l.adapter.HandleDirectMessage(ctx, ev.Text, ev.User)
		l.post(ctx, ev.Channel, ev.ThreadTimeStamp, reply)
	}
}

func (l *SocketListener) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	logger := logging.GetLogger()
	if l.command != "" && cmd.Command != l.command {
		logger.Debug(ctx, "Ignoring slash command %s", cmd.Command)
		return
	}
	logger.Debug(ctx, "Slash command %s %q from %s", cmd.Command, cmd.Text, cmd.UserID)

	reply := l.adapter.HandleSlashCommand(ctx, cmd.Text, cmd.UserID)
	if cmd.ResponseURL == "" {
		l.post(ctx, cmd.ChannelID, "", reply)
		return
	}
	err := l.postWebhook(ctx, cmd.ResponseURL, &slack.WebhookMessage{
		Text:         reply,
		ResponseType: "in_channel",
	})
	if err != nil {
		logger.Error(ctx, "Failed to answer slash command %s: %v", cmd.Command, err)
	}
}

func (l *SocketListener) post(ctx context.Context, channel, thread, text string) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if thread != "" {
		opts = append(opts, slack.MsgOptionTS(thread))
	}
	if _, _, err := l.api.PostMessageContext(ctx, channel, opts...); err != nil {
		logging.GetLogger().Error(ctx, "Failed to post Slack reply to %s: %v", channel, err)
	}
}
