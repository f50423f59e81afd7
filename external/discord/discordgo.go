package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	discordpkg "github.com/foxseedlab/kiosko/internal/discord"
)

// unknownMessageCode is Discord's JSON error code for a deleted or missing message.
const unknownMessageCode = 10008

type Client struct {
	session     *discordgo.Session
	token       string
	appID       string
	botUserID   string
	connectedAt time.Time

	mu sync.Mutex
}

func NewClient(token, appID string) discordpkg.Client {
	return &Client{
		token: token,
		appID: appID,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds)
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	c.connectedAt = time.Now()
	slog.Info("connected to discord gateway", "bot_user_id", userID, "guilds", len(s.State.Guilds))
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) RegisterInteractionHandler(handler func(discordpkg.Interaction)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Interaction == nil {
			return
		}
		in, ok := toInteraction(ic.Interaction)
		if !ok {
			return
		}
		in.Responder = newResponder(s, ic.Interaction)
		slog.Debug("interaction received", "interaction_id", in.ID, "kind", in.Kind, "name", in.Name, "guild_id", in.GuildID, "channel_id", in.ChannelID, "user_id", in.UserID)
		handler(in)
	})
}

func toInteraction(i *discordgo.Interaction) (discordpkg.Interaction, bool) {
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil || user.ID == "" {
		return discordpkg.Interaction{}, false
	}
	in := discordpkg.Interaction{
		ID:        i.ID,
		UserID:    user.ID,
		UserTag:   user.String(),
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		if data.Name == "" {
			return in, false
		}
		in.Kind = discordpkg.InteractionCommand
		in.Name = data.Name
		in.Options = make(map[string]string, len(data.Options))
		for _, opt := range data.Options {
			if opt == nil || opt.Type != discordgo.ApplicationCommandOptionString {
				continue
			}
			in.Options[opt.Name] = opt.StringValue()
		}
	case discordgo.InteractionMessageComponent:
		in.Kind = discordpkg.InteractionAction
		in.Name = i.MessageComponentData().CustomID
		if i.Message != nil {
			in.MessageID = i.Message.ID
		}
	default:
		return in, false
	}
	return in, true
}

// UpsertSlashCommands publishes defs to the guild, or globally when guildID is empty.
func (c *Client) UpsertSlashCommands(guildID string, defs []discordpkg.SlashCommandDefinition) error {
	appID := c.applicationID()
	if appID == "" {
		return fmt.Errorf("discord application id is not available")
	}
	existing, err := c.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}
	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		if cmd == nil || cmd.Name == "" {
			continue
		}
		existingByName[cmd.Name] = cmd
	}
	for _, def := range defs {
		if err := c.upsertSlashCommand(appID, guildID, def, existingByName); err != nil {
			return fmt.Errorf("upsert command %s: %w", def.Name, err)
		}
	}
	slog.Info("slash commands published", "guild_id", guildID, "count", len(defs))
	return nil
}

func (c *Client) upsertSlashCommand(appID, guildID string, def discordpkg.SlashCommandDefinition, existingByName map[string]*discordgo.ApplicationCommand) error {
	if def.Name == "" {
		return nil
	}
	payload := toApplicationCommand(def)
	cmd, ok := existingByName[def.Name]
	if !ok {
		_, err := c.session.ApplicationCommandCreate(appID, guildID, payload)
		return err
	}
	_, err := c.session.ApplicationCommandEdit(appID, guildID, cmd.ID, payload)
	return err
}

func (c *Client) SendChannelMessage(ctx context.Context, channelID string, reply discordpkg.Reply) (string, error) {
	files, closeFiles, err := openFiles(reply.Files)
	if err != nil {
		return "", err
	}
	defer closeFiles()
	msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    reply.Content,
		Embeds:     toEmbeds(reply.Embeds),
		Components: toComponents(reply.Buttons),
		Files:      files,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err)
	}
	return msg.ID, nil
}

func (c *Client) EditChannelMessage(ctx context.Context, channelID, messageID string, reply discordpkg.Reply) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	content := reply.Content
	embeds := toEmbeds(reply.Embeds)
	components := toComponents(reply.Buttons)
	edit.Content = &content
	edit.Embeds = &embeds
	edit.Components = &components
	_, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) ClearComponents(ctx context.Context, channelID, messageID string) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Components = &[]discordgo.MessageComponent{}
	_, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) DeleteChannelMessage(ctx context.Context, channelID, messageID string) error {
	return mapError(c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (c *Client) SendDirectMessage(ctx context.Context, userID, content string) error {
	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err)
	}
	_, err = c.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) UpdatePresence(text string) error {
	return c.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{{
			Name: text,
			Type: discordgo.ActivityTypeWatching,
		}},
	})
}

func (c *Client) Stats() discordpkg.Stats {
	stats := discordpkg.Stats{}
	if c.session == nil {
		return stats
	}
	stats.Latency = c.session.HeartbeatLatency()
	if !c.connectedAt.IsZero() {
		stats.Uptime = time.Since(c.connectedAt)
	}
	if c.session.State == nil {
		return stats
	}
	c.session.State.RLock()
	defer c.session.State.RUnlock()
	for _, g := range c.session.State.Guilds {
		if g == nil {
			continue
		}
		stats.Guilds++
		stats.Users += g.MemberCount
		stats.Channels += len(g.Channels)
	}
	return stats
}

// mapError translates REST failures the domain cares about into sentinel errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeCannotSendMessagesToThisUser:
			return fmt.Errorf("%w: %w", discordpkg.ErrDirectMessageClosed, err)
		case unknownMessageCode:
			return fmt.Errorf("%w: %w", discordpkg.ErrMessageNotFound, err)
		}
	}
	if isRESTNotFound(err) {
		return fmt.Errorf("%w: %w", discordpkg.ErrMessageNotFound, err)
	}
	return err
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func (c *Client) GetBotUserID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) applicationID() string {
	if c.appID != "" {
		return c.appID
	}
	if c.session == nil || c.session.State == nil {
		return ""
	}
	if c.session.State.Application != nil && c.session.State.Application.ID != "" {
		return c.session.State.Application.ID
	}
	if c.session.State.User != nil {
		return c.session.State.User.ID
	}
	return ""
}

func (c *Client) Run() error {
	select {}
}
