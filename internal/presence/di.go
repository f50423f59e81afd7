package presence

import (
	"github.com/samber/do/v2"

	"github.com/foxseedlab/kiosko/internal/config"
	"github.com/foxseedlab/kiosko/internal/discord"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Rotator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewRotator(do.MustInvoke[discord.Client](i), cfg.PresenceInterval), nil
	})
}
