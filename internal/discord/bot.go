package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/logging"
)

const doneReply = "Done."

// NewSession creates an unopened bot session.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	return s, nil
}

type sessionSender struct {
	s *discordgo.Session
}

// NewSessionSender adapts a session to Sender.
func NewSessionSender(s *discordgo.Session) Sender {
	return &sessionSender{s: s}
}

func (ss *sessionSender) Send(channelID, content string) (string, error) {
	m, err := ss.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (ss *sessionSender) Edit(channelID, messageID, content string) error {
	_, err := ss.s.ChannelMessageEdit(channelID, messageID, content)
	return err
}

// Bot owns the gateway connection. Commands run on their own goroutine with
// a context derived from the one passed to Run.
type Bot struct {
	session   *discordgo.Session
	router    *Router
	collector *Collector
	guildID   string

	ctx      context.Context
	inflight sync.WaitGroup
}

func NewBot(session *discordgo.Session, router *Router, collector *Collector, guildID string) *Bot {
	return &Bot{session: session, router: router, collector: collector, guildID: guildID}
}

// Run connects and blocks until ctx is done, then waits for running
// commands to unwind before closing the session.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	<-ctx.Done()
	b.inflight.Wait()
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logging.Info("discord session ready", logging.Fields{"user": r.User.Username})
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, b.guildID, Commands()); err != nil {
		logging.Error("failed to register commands", err, nil)
	}
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	b.collector.Dispatch(m.ChannelID, m.Author.ID, m.Content)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	userID := ""
	switch {
	case i.Member != nil && i.Member.User != nil:
		userID = i.Member.User.ID
	case i.User != nil:
		userID = i.User.ID
	}
	cmd := ParseCommand(i.ApplicationCommandData(), userID, i.ChannelID)

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logging.Error("failed to acknowledge interaction", err, logging.Fields{constants.LogFieldCommand: cmd.Name})
		return
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		reply := b.router.Handle(b.ctx, cmd)
		if reply == "" {
			reply = doneReply
		}
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: reply}); err != nil {
			logging.Warn("followup failed", logging.Fields{constants.LogFieldCommand: cmd.Name, "error": err.Error()})
		}
	}()
}
