package discord

import (
	"context"
	"errors"
	"time"
)

// ErrMessageNotFound is returned when the target message was already deleted.
var ErrMessageNotFound = errors.New("discord message not found")

// ErrDirectMessageClosed is returned when a user does not accept direct messages.
var ErrDirectMessageClosed = errors.New("discord direct messages closed")

type InteractionKind string

const (
	InteractionCommand InteractionKind = "command"
	InteractionAction  InteractionKind = "action"
)

type SlashCommandOptionChoice struct {
	Name  string
	Value string
}

type SlashCommandOption struct {
	Name        string
	Description string
	Required    bool
	Choices     []SlashCommandOptionChoice
}

type SlashCommandDefinition struct {
	Name        string
	Description string
	Options     []SlashCommandOption
	AdminOnly   bool
}

type Interaction struct {
	ID        string
	Kind      InteractionKind
	Name      string
	UserID    string
	UserTag   string
	GuildID   string
	ChannelID string
	MessageID string
	Options   map[string]string
	Responder Responder
}

func (i Interaction) Option(name string) string {
	if i.Options == nil {
		return ""
	}
	return i.Options[name]
}

type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

type Button struct {
	ID       string
	Label    string
	Style    ButtonStyle
	Disabled bool
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title        string
	Description  string
	Color        int
	ImageURL     string
	ThumbnailURL string
	Footer       string
	Fields       []EmbedField
}

type File struct {
	Name        string
	ContentType string
	Path        string
}

// Reply is a full message body. Sending it replaces content, embeds and components.
type Reply struct {
	Content   string
	Embeds    []Embed
	Buttons   []Button
	Files     []File
	Ephemeral bool
}

type Responder interface {
	Defer(ctx context.Context, ephemeral bool) error
	// Respond sends the initial response, or edits the deferred one. Returns the message id.
	Respond(ctx context.Context, reply Reply) (string, error)
	FollowUp(ctx context.Context, reply Reply) (string, error)
	// Update rewrites the message hosting the component that triggered the interaction.
	Update(ctx context.Context, reply Reply) error
	Acknowledged() bool
}

type Stats struct {
	Guilds   int
	Users    int
	Channels int
	Latency  time.Duration
	Uptime   time.Duration
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	RegisterInteractionHandler(handler func(Interaction))
	UpsertSlashCommands(guildID string, defs []SlashCommandDefinition) error
	SendChannelMessage(ctx context.Context, channelID string, reply Reply) (string, error)
	EditChannelMessage(ctx context.Context, channelID, messageID string, reply Reply) error
	// ClearComponents removes every button from a message and keeps its content.
	ClearComponents(ctx context.Context, channelID, messageID string) error
	DeleteChannelMessage(ctx context.Context, channelID, messageID string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
	UpdatePresence(text string) error
	Stats() Stats
	GetBotUserID() (string, error)
	Run() error
}
