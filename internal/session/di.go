package session

import (
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		dc := do.MustInvoke[discord.Client](i)
		return NewManager(dc), nil
	})
}
