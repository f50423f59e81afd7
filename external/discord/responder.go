package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	discordpkg "github.com/foxseedlab/kiosko/internal/discord"
)

// responder answers a single interaction through its token.
type responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu sync.Mutex
	// acked is set once Discord has received the initial response.
	acked bool
	// deferredUpdate means the acknowledgement edits the component's message.
	deferredUpdate bool
}

func newResponder(s *discordgo.Session, i *discordgo.Interaction) *responder {
	return &responder{session: s, interaction: i}
}

func (r *responder) isComponent() bool {
	return r.interaction.Type == discordgo.InteractionMessageComponent
}

func (r *responder) Acknowledged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked
}

func (r *responder) Defer(ctx context.Context, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acked {
		return nil
	}
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if r.isComponent() {
		resp.Type = discordgo.InteractionResponseDeferredMessageUpdate
	} else if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := r.session.InteractionRespond(r.interaction, resp, discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	r.acked = true
	r.deferredUpdate = r.isComponent()
	return nil
}

func (r *responder) Respond(ctx context.Context, reply discordpkg.Reply) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	files, closeFiles, err := openFiles(reply.Files)
	if err != nil {
		return "", err
	}
	defer closeFiles()

	switch {
	case r.deferredUpdate:
		// the deferred acknowledgement belongs to the component's message, so the reply is a new one
		return r.followUp(ctx, reply, files)
	case r.acked:
		msg, err := r.session.InteractionResponseEdit(r.interaction, toWebhookEdit(reply, files), discordgo.WithContext(ctx))
		if err != nil {
			return "", mapError(err)
		}
		return msg.ID, nil
	}

	data := &discordgo.InteractionResponseData{
		Content:    reply.Content,
		Embeds:     toEmbeds(reply.Embeds),
		Components: toComponents(reply.Buttons),
		Files:      files,
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx)); err != nil {
		return "", mapError(err)
	}
	r.acked = true
	msg, err := r.session.InteractionResponse(r.interaction, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err)
	}
	return msg.ID, nil
}

func (r *responder) FollowUp(ctx context.Context, reply discordpkg.Reply) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	files, closeFiles, err := openFiles(reply.Files)
	if err != nil {
		return "", err
	}
	defer closeFiles()
	return r.followUp(ctx, reply, files)
}

func (r *responder) followUp(ctx context.Context, reply discordpkg.Reply, files []*discordgo.File) (string, error) {
	params := &discordgo.WebhookParams{
		Content:    reply.Content,
		Embeds:     toEmbeds(reply.Embeds),
		Components: toComponents(reply.Buttons),
		Files:      files,
	}
	if reply.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	msg, err := r.session.FollowupMessageCreate(r.interaction, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err)
	}
	return msg.ID, nil
}

func (r *responder) Update(ctx context.Context, reply discordpkg.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	files, closeFiles, err := openFiles(reply.Files)
	if err != nil {
		return err
	}
	defer closeFiles()

	if r.acked {
		_, err := r.session.InteractionResponseEdit(r.interaction, toWebhookEdit(reply, files), discordgo.WithContext(ctx))
		return mapError(err)
	}
	err = r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    reply.Content,
			Embeds:     toEmbeds(reply.Embeds),
			Components: toComponents(reply.Buttons),
			Files:      files,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err)
	}
	r.acked = true
	return nil
}
