package router

import (
	"github.com/foxseedlab/kiosko/internal/audit"
	"github.com/foxseedlab/kiosko/internal/config"
	"github.com/foxseedlab/kiosko/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		sessions := do.MustInvoke[*session.Manager](i)
		recorder := do.MustInvoke[audit.Recorder](i)
		return New(sessions, recorder, cfg.CommandTimeout), nil
	})
}
