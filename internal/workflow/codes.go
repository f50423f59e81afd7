package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/ledger"
)

func (w *Workflows) generateCode(ctx context.Context, in discord.Interaction) error {
	if w.cfg.OwnerID == "" {
		return notConfigured("generar-codigo", msgOwnerMissing)
	}
	if in.UserID != w.cfg.OwnerID {
		return apperror.WithMessage(fmt.Errorf("user %s generating codes: %w", in.UserID, apperror.ErrUnauthorized), msgOwnerOnly)
	}
	prefix, err := requiredOption(in, "prefijo")
	if err != nil {
		return err
	}
	if err := in.Responder.Defer(ctx, true); err != nil {
		return err
	}
	code, err := w.ledger.Generate(ctx, prefix)
	switch {
	case errors.Is(err, ledger.ErrPrefixNotAllowed):
		msg := fmt.Sprintf(msgPrefixInvalid, strings.Join(w.ledger.AllowedPrefixes(), ", "))
		return apperror.WithMessage(fmt.Errorf("%w: %w", apperror.ErrInvalidInput, err), msg)
	case err != nil:
		return apperror.WithMessage(err, msgCodeGenFailed)
	}
	slog.Info("access code generated", "prefix", prefix, "user_id", in.UserID)

	_, err = in.Responder.Respond(ctx, discord.Reply{
		Embeds: []discord.Embed{{
			Title:       "🔑 Código generado",
			Description: "```" + code + "```",
			Color:       colorSuccess,
			Footer:      "Este código puede usarse una sola vez",
		}},
		Ephemeral: true,
	})
	return err
}
