package workflow

import (
	"github.com/samber/do/v2"

	"github.com/foxseedlab/kiosko/internal/config"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/ledger"
	"github.com/foxseedlab/kiosko/internal/media"
	"github.com/foxseedlab/kiosko/internal/session"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Workflows, error) {
		return New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[discord.Client](i),
			do.MustInvoke[*session.Manager](i),
			do.MustInvoke[*ledger.Ledger](i),
			do.MustInvoke[*media.Pipeline](i),
			do.MustInvoke[Providers](i),
		), nil
	})
}
