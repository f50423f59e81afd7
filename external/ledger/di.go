package ledger

import (
	"log/slog"

	"github.com/foxseedlab/kiosko/internal/config"
	"github.com/foxseedlab/kiosko/internal/ledger"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*ledger.Ledger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return ledger.New(openStore(cfg.DataDir), cfg.AllowedCodePrefixes), nil
	})
}

// openStore falls back to an in-memory ledger when dir cannot be used.
func openStore(dir string) ledger.Store {
	store, err := OpenFileStore(dir)
	if err != nil {
		slog.Warn("ledger dir unusable; verifications will not survive a restart", "dir", dir, "error", err)
		return ledger.NewMemoryStore()
	}
	return store
}
