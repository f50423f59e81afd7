package media

import (
	"github.com/samber/do/v2"

	"github.com/foxseedlab/kiosko/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewPipeline(cfg.DownloadDir)
	})
}
