package discord

import (
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"

	discordpkg "github.com/foxseedlab/kiosko/internal/discord"
)

// buttonsPerRow is Discord's limit for components in one action row.
const buttonsPerRow = 5

var adminPermission int64 = discordgo.PermissionAdministrator

func toApplicationCommand(def discordpkg.SlashCommandDefinition) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        def.Name,
		Description: def.Description,
	}
	for _, opt := range def.Options {
		o := &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        opt.Name,
			Description: opt.Description,
			Required:    opt.Required,
		}
		for _, ch := range opt.Choices {
			o.Choices = append(o.Choices, &discordgo.ApplicationCommandOptionChoice{Name: ch.Name, Value: ch.Value})
		}
		cmd.Options = append(cmd.Options, o)
	}
	if def.AdminOnly {
		cmd.DefaultMemberPermissions = &adminPermission
	}
	return cmd
}

func toEmbeds(embeds []discordpkg.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.ImageURL != "" {
			me.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
		}
		if e.ThumbnailURL != "" {
			me.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, me)
	}
	return out
}

func toComponents(buttons []discordpkg.Button) []discordgo.MessageComponent {
	out := []discordgo.MessageComponent{}
	for start := 0; start < len(buttons); start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(buttons))
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				CustomID: b.ID,
				Label:    b.Label,
				Style:    toButtonStyle(b.Style),
				Disabled: b.Disabled,
			})
		}
		out = append(out, row)
	}
	return out
}

func toButtonStyle(s discordpkg.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case discordpkg.ButtonSuccess:
		return discordgo.SuccessButton
	case discordpkg.ButtonDanger:
		return discordgo.DangerButton
	case discordpkg.ButtonSecondary:
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}

func toWebhookEdit(reply discordpkg.Reply, files []*discordgo.File) *discordgo.WebhookEdit {
	content := reply.Content
	embeds := toEmbeds(reply.Embeds)
	components := toComponents(reply.Buttons)
	return &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
		Files:      files,
	}
}

// openFiles opens local artifacts for upload. The returned func closes them.
func openFiles(files []discordpkg.File) ([]*discordgo.File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	out := make([]*discordgo.File, 0, len(files))
	for _, file := range files {
		f, err := os.Open(file.Path)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("failed to open attachment %s: %w", file.Name, err)
		}
		opened = append(opened, f)
		out = append(out, &discordgo.File{Name: file.Name, ContentType: file.ContentType, Reader: f})
	}
	return out, closeAll, nil
}
