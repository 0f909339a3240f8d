package discord

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media_syndicator/internal/domain"
)

type fakeSession struct {
	channels map[string]*discordgo.Channel
	sent     map[string][]*discordgo.MessageEmbed
	sendErr  error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		channels: map[string]*discordgo.Channel{},
		sent:     map[string][]*discordgo.MessageEmbed{},
	}
}

func (f *fakeSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, errors.New("HTTP 404 Not Found, {\"message\": \"Unknown Channel\", \"code\": 10003}")
	}
	return ch, nil
}

func (f *fakeSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent[channelID] = append(f.sent[channelID], embed)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestResolve(t *testing.T) {
	session := newFakeSession()
	session.channels["123"] = &discordgo.Channel{ID: "123", Type: discordgo.ChannelTypeGuildText}
	sink := New(session, nil, testLogger())

	dest, err := sink.Resolve(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, domain.Destination{ID: "123", Reference: "<#123>"}, dest)

	_, err = sink.Resolve(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrDestinationUnresolvable)

	_, err = sink.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrDestinationUnresolvable)
}

func TestResolve_PrefersStateCache(t *testing.T) {
	state := discordgo.NewState()
	guild := &discordgo.Guild{ID: "g1"}
	require.NoError(t, state.GuildAdd(guild))
	require.NoError(t, state.ChannelAdd(&discordgo.Channel{ID: "555", GuildID: "g1", Type: discordgo.ChannelTypeGuildText}))

	sink := New(newFakeSession(), state, testLogger())

	dest, err := sink.Resolve(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, "<#555>", dest.Reference)
}

func TestSend(t *testing.T) {
	session := newFakeSession()
	sink := New(session, nil, testLogger())

	msg := domain.Message{
		ItemID:      "abc",
		Title:       "t",
		URL:         "https://reddit.com/r/pics/comments/abc/",
		Description: "Posted by u/x",
		Footer:      "r/pics",
		ImageURL:    "https://i.redd.it/abc.png",
	}
	require.NoError(t, sink.Send(context.Background(), domain.Destination{ID: "123"}, msg))

	require.Len(t, session.sent["123"], 1)
	embed := session.sent["123"][0]
	assert.Equal(t, "https://i.redd.it/abc.png", embed.Image.URL)
	assert.Equal(t, "r/pics", embed.Footer.Text)
}

func TestSend_Error(t *testing.T) {
	session := newFakeSession()
	session.sendErr = errors.New("Missing Permissions")
	sink := New(session, nil, testLogger())

	err := sink.Send(context.Background(), domain.Destination{ID: "123"}, domain.Message{})
	assert.ErrorContains(t, err, "Missing Permissions")
}

func TestEmbed_VideoField(t *testing.T) {
	embed := Embed(domain.Message{
		Title:  "clip",
		Fields: []domain.Field{{Name: "Video", Value: "https://v.redd.it/x/DASH_720.mp4"}},
	})

	assert.Nil(t, embed.Image)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Video", embed.Fields[0].Name)
	assert.False(t, embed.Fields[0].Inline)
}
