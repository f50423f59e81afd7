package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/config"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/ledger"
	"github.com/foxseedlab/kiosko/internal/media"
	"github.com/foxseedlab/kiosko/internal/provider"
	"github.com/foxseedlab/kiosko/internal/router"
	"github.com/foxseedlab/kiosko/internal/session"
)

const defaultScanInterval = 2 * time.Second

// Providers holds the optional external collaborators. A nil field means the
// integration is not configured and its commands answer with a notice.
type Providers struct {
	Text       provider.TextGenerator
	Images     provider.ImageSearcher
	Stock      provider.StockMedia
	Reputation provider.URLReputation
	Preview    provider.LinkPreviewer
	Video      provider.VideoSource
}

type Workflows struct {
	cfg      *config.Config
	dc       discord.Client
	sessions *session.Manager
	ledger   *ledger.Ledger
	media    *media.Pipeline
	p        Providers

	files        media.Source
	validate     *validator.Validate
	printer      *message.Printer
	started      time.Time
	now          func() time.Time
	scanInterval time.Duration
}

func New(cfg *config.Config, dc discord.Client, sessions *session.Manager, l *ledger.Ledger, pipeline *media.Pipeline, p Providers) *Workflows {
	return &Workflows{
		cfg:          cfg,
		dc:           dc,
		sessions:     sessions,
		ledger:       l,
		media:        pipeline,
		p:            p,
		files:        media.HTTPSource{},
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		printer:      message.NewPrinter(language.Spanish),
		started:      time.Now(),
		now:          time.Now,
		scanInterval: defaultScanInterval,
	}
}

type command struct {
	def discord.SlashCommandDefinition
	run router.CommandHandler
}

// Register binds every command handler to r.
func (w *Workflows) Register(r *router.Router) {
	for _, c := range w.commands() {
		r.Handle(c.def.Name, c.run)
	}
}

// Commands returns the slash command schema to publish.
func (w *Workflows) Commands() []discord.SlashCommandDefinition {
	cmds := w.commands()
	defs := make([]discord.SlashCommandDefinition, 0, len(cmds))
	for _, c := range cmds {
		defs = append(defs, c.def)
	}
	return defs
}

func (w *Workflows) constraints() media.Constraints {
	return media.Constraints{
		MaxDurationSeconds: w.cfg.MaxMediaDurationSec,
		MaxBytes:           w.cfg.MaxMediaBytes,
	}
}

func actorOf(in discord.Interaction) session.Actor {
	return session.Actor{UserID: in.UserID, ChannelID: in.ChannelID}
}

func notConfigured(name, msg string) error {
	return apperror.WithMessage(fmt.Errorf("%s: %w", name, apperror.ErrConfigurationMissing), msg)
}

func requiredOption(in discord.Interaction, name string) (string, error) {
	v := strings.TrimSpace(in.Option(name))
	if v == "" {
		return "", fmt.Errorf("option %q is empty: %w", name, apperror.ErrInvalidInput)
	}
	return v, nil
}

// sendDM delivers a direct message. A closed inbox is reported to the actor
// with an ephemeral notice and is not an error.
func (w *Workflows) sendDM(ctx context.Context, call *session.Call, parts []string, okNotice, closedNotice string) error {
	for _, part := range parts {
		if err := w.dc.SendDirectMessage(ctx, call.Event.Actor.UserID, part); err != nil {
			if errors.Is(err, discord.ErrDirectMessageClosed) {
				slog.Info("direct message rejected", "user_id", call.Event.Actor.UserID, "session_id", call.Next.ID)
				_, rerr := call.Event.Responder.Respond(ctx, discord.Reply{Content: closedNotice, Ephemeral: true})
				return rerr
			}
			return fmt.Errorf("send direct message: %w", err)
		}
	}
	_, err := call.Event.Responder.Respond(ctx, discord.Reply{Content: okNotice, Ephemeral: true})
	return err
}

// deleteHost removes the message hosting the session's controls.
func (w *Workflows) deleteHost(ctx context.Context, call *session.Call) error {
	if err := call.Event.Responder.Defer(ctx, false); err != nil {
		return err
	}
	if call.Next.MessageID == "" {
		return discord.ErrMessageNotFound
	}
	return w.dc.DeleteChannelMessage(ctx, call.Next.ChannelID, call.Next.MessageID)
}

// logToChannel posts to the configured log channel. Failures are only logged.
func (w *Workflows) logToChannel(ctx context.Context, reply discord.Reply) string {
	if w.cfg.LogChannelID == "" {
		return ""
	}
	id, err := w.dc.SendChannelMessage(ctx, w.cfg.LogChannelID, reply)
	if err != nil {
		slog.Warn("failed to post to log channel", "channel_id", w.cfg.LogChannelID, "error", err)
		return ""
	}
	return id
}

func (w *Workflows) timestamp() string {
	return w.now().Format("2/1/2006, 15:04:05")
}
