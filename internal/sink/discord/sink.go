// Package discord delivers messages to Discord text channels.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"media_syndicator/internal/domain"
)

// Session is the subset of *discordgo.Session the sink needs.
type Session interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Sink struct {
	session Session
	state   *discordgo.State
	logger  *slog.Logger
}

// New creates a sink. state may be nil; when set it is consulted before the
// REST API to resolve channels.
func New(session Session, state *discordgo.State, logger *slog.Logger) *Sink {
	return &Sink{
		session: session,
		state:   state,
		logger:  logger.With("sink", "discord"),
	}
}

// Resolve looks up a text channel by id.
func (s *Sink) Resolve(ctx context.Context, destinationID string) (domain.Destination, error) {
	if destinationID == "" {
		return domain.Destination{}, fmt.Errorf("empty channel id: %w", domain.ErrDestinationUnresolvable)
	}

	var ch *discordgo.Channel
	if s.state != nil {
		ch, _ = s.state.Channel(destinationID)
	}
	if ch == nil {
		var err error
		ch, err = s.session.Channel(destinationID, discordgo.WithContext(ctx))
		if err != nil {
			return domain.Destination{}, fmt.Errorf("channel %s: %w: %w", destinationID, domain.ErrDestinationUnresolvable, err)
		}
	}

	return domain.Destination{ID: ch.ID, Reference: ch.Mention()}, nil
}

func (s *Sink) Send(ctx context.Context, dest domain.Destination, msg domain.Message) error {
	if _, err := s.session.ChannelMessageSendEmbed(dest.ID, Embed(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send embed to %s: %w", dest.ID, err)
	}

	s.logger.Debug("sent embed", "channel", dest.ID, "item_id", msg.ItemID)
	return nil
}

// Embed renders a message as a Discord embed.
func Embed(msg domain.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		URL:         msg.URL,
		Description: msg.Description,
		Footer:      &discordgo.MessageEmbedFooter{Text: msg.Footer},
	}

	if msg.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: msg.ImageURL}
	}

	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: false,
		})
	}

	return embed
}
