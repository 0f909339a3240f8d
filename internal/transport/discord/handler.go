// Package discord exposes the administrative operations as Discord slash commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"media_syndicator/internal/domain"
)

// Admin is implemented by service.Admin.
type Admin interface {
	SetMapping(ctx context.Context, sourceID, destinationID string) (domain.Mapping, error)
	RemoveMapping(ctx context.Context, sourceID string) (bool, error)
	ListMappings(ctx context.Context) ([]domain.MappingView, error)
	SetInterval(ctx context.Context, minutes int) error
	SetItemsPerCycle(ctx context.Context, count int) error
	Settings(ctx context.Context) (domain.Settings, error)
}

// Dispatcher is implemented by service.Syndicator.
type Dispatcher interface {
	ForceSend(ctx context.Context, sourceID, destinationID string) (*domain.Delivery, error)
}

// Authorizer decides whether an interaction may invoke a restricted command.
type Authorizer func(i *discordgo.InteractionCreate) bool

// IsAdministrator allows guild members holding the administrator permission.
func IsAdministrator(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

const replyForbidden = "❌ You must be a server admin to use this command."

type Handler struct {
	admin      Admin
	dispatcher Dispatcher
	authorize  Authorizer
	timeout    time.Duration
	logger     *slog.Logger
}

func NewHandler(admin Admin, dispatcher Dispatcher, authorize Authorizer, timeout time.Duration, logger *slog.Logger) *Handler {
	if authorize == nil {
		authorize = IsAdministrator
	}
	return &Handler{
		admin:      admin,
		dispatcher: dispatcher,
		authorize:  authorize,
		timeout:    timeout,
		logger:     logger.With("component", "commands"),
	}
}

// Register installs the interaction handler and overwrites the application's
// commands. An empty guildID registers them globally. The session must be open.
func (h *Handler) Register(s *discordgo.Session, guildID string) error {
	s.AddHandler(h.onInteraction)

	created, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	h.logger.Info("slash commands registered", "count", len(created), "guild_id", guildID)
	return nil
}

func (h *Handler) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	// Force send talks to the source and the sink; acknowledge first so the
	// interaction token does not expire.
	if name == cmdForceSend {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
		})
		if err != nil {
			h.logger.Error("defer response", "command", name, "error", err)
			return
		}

		reply := h.execute(ctx, i)
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply}); err != nil {
			h.logger.Error("edit response", "command", name, "error", err)
		}
		return
	}

	reply := h.execute(ctx, i)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Error("respond", "command", name, "error", err)
	}
}

// execute runs a command and returns the reply text.
func (h *Handler) execute(ctx context.Context, i *discordgo.InteractionCreate) string {
	data := i.ApplicationCommandData()
	if restricted[data.Name] && !h.authorize(i) {
		return replyForbidden
	}

	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, o := range data.Options {
		opts[o.Name] = o
	}

	logger := h.logger.With("command", data.Name)
	if i.Member != nil && i.Member.User != nil {
		logger = logger.With("user_id", i.Member.User.ID)
	}

	switch data.Name {
	case cmdSetSubreddit:
		return h.setSubreddit(ctx, logger, stringOpt(opts, optSubreddit), channelOpt(opts, optChannel))
	case cmdRemoveSubreddit:
		return h.removeSubreddit(ctx, logger, stringOpt(opts, optSubreddit))
	case cmdListMappings:
		return h.listMappings(ctx, logger)
	case cmdSetInterval:
		return h.setInterval(ctx, logger, intOpt(opts, optMinutes))
	case cmdSetPosts:
		return h.setPosts(ctx, logger, intOpt(opts, optCount))
	case cmdShowPosts:
		return h.showPosts(ctx, logger)
	case cmdForceSend:
		return h.forceSend(ctx, logger, stringOpt(opts, optSubreddit), channelOpt(opts, optChannel))
	default:
		return fmt.Sprintf("❌ Unknown command %q.", data.Name)
	}
}

func (h *Handler) setSubreddit(ctx context.Context, logger *slog.Logger, subreddit, channelID string) string {
	sub := domain.NormalizeSourceID(subreddit)

	m, err := h.admin.SetMapping(ctx, subreddit, channelID)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ Mapped r/%s to %s.", m.SourceID, mention(m.DestinationID))
	case errors.Is(err, domain.ErrSourceNotEligible):
		return fmt.Sprintf("❌ r/%s is not marked as NSFW.", sub)
	case errors.Is(err, domain.ErrSourceNotFound):
		return fmt.Sprintf("❌ Could not find r/%s.", sub)
	case errors.Is(err, domain.ErrSourceUnavailable):
		logger.Warn("source check failed", "source", sub, "error", err)
		return fmt.Sprintf("❌ Could not check r/%s right now, try again later.", sub)
	case errors.Is(err, domain.ErrInvalidArgument):
		return "❌ A subreddit and a channel are required."
	default:
		logger.Error("set mapping failed", "source", sub, "error", err)
		return fmt.Sprintf("❌ Error: %v", err)
	}
}

func (h *Handler) removeSubreddit(ctx context.Context, logger *slog.Logger, subreddit string) string {
	sub := domain.NormalizeSourceID(subreddit)

	existed, err := h.admin.RemoveMapping(ctx, subreddit)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return "❌ A subreddit is required."
	case err != nil:
		logger.Error("remove mapping failed", "source", sub, "error", err)
		return fmt.Sprintf("❌ Error: %v", err)
	case !existed:
		return fmt.Sprintf("❌ No mapping found for r/%s.", sub)
	default:
		return fmt.Sprintf("✅ Removed mapping for r/%s.", sub)
	}
}

func (h *Handler) listMappings(ctx context.Context, logger *slog.Logger) string {
	views, err := h.admin.ListMappings(ctx)
	if err != nil {
		logger.Error("list mappings failed", "error", err)
		return fmt.Sprintf("❌ Error: %v", err)
	}
	if len(views) == 0 {
		return "No mappings set."
	}

	var b strings.Builder
	b.WriteString("**Subreddit → Channel**\n")
	for _, v := range views {
		fmt.Fprintf(&b, "r/%s → %s\n", v.SourceID, v.Reference)
	}
	return b.String()
}

func (h *Handler) setInterval(ctx context.Context, logger *slog.Logger, minutes int) string {
	err := h.admin.SetInterval(ctx, minutes)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ Fetch interval set to %d minutes.", minutes)
	case errors.Is(err, domain.ErrInvalidArgument):
		return "❌ Interval must be at least 1 minute."
	default:
		logger.Error("set interval failed", "error", err)
		return fmt.Sprintf("❌ Error: %v", err)
	}
}

func (h *Handler) setPosts(ctx context.Context, logger *slog.Logger, count int) string {
	err := h.admin.SetItemsPerCycle(ctx, count)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ Will send %d post(s) per channel per interval.", count)
	case errors.Is(err, domain.ErrInvalidArgument):
		return fmt.Sprintf("❌ Count must be between %d and %d.", domain.MinItemsPerCycle, domain.MaxItemsPerCycle)
	default:
		logger.Error("set posts failed", "error", err)
		return fmt.Sprintf("❌ Error: %v", err)
	}
}

func (h *Handler) showPosts(ctx context.Context, logger *slog.Logger) string {
	settings, err := h.admin.Settings(ctx)
	if err != nil {
		logger.Error("read settings failed", "error", err)
		return fmt.Sprintf("❌ Error: %v", err)
	}
	return fmt.Sprintf("Currently set to send %d post(s) per channel per interval, every %d minutes.",
		settings.ItemsPerCycle, settings.IntervalMinutes)
}

func (h *Handler) forceSend(ctx context.Context, logger *slog.Logger, subreddit, channelID string) string {
	sub := domain.NormalizeSourceID(subreddit)

	delivery, err := h.dispatcher.ForceSend(ctx, subreddit, channelID)
	switch {
	case err == nil:
		logger.Info("force sent", "source", sub, "item_id", delivery.Item.ID, "destination", channelID)
		return fmt.Sprintf("✅ Forced sent media from r/%s to %s.", sub, delivery.Destination.Reference)
	case errors.Is(err, domain.ErrNoEligibleMedia):
		return fmt.Sprintf("❌ No suitable media found in r/%s.", sub)
	case errors.Is(err, domain.ErrSourceNotFound):
		return fmt.Sprintf("❌ Could not find r/%s.", sub)
	case errors.Is(err, domain.ErrDestinationUnresolvable):
		return fmt.Sprintf("❌ Cannot post to %s.", mention(channelID))
	default:
		logger.Error("force send failed", "source", sub, "error", err)
		return fmt.Sprintf("❌ Error: %v", err)
	}
}

func stringOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

func intOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionInteger {
		return int(o.IntValue())
	}
	return 0
}

func channelOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionChannel {
		return o.ChannelValue(nil).ID
	}
	return ""
}

func mention(channelID string) string {
	return "<#" + channelID + ">"
}
