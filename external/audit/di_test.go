package audit

import (
	"testing"

	"github.com/samber/do/v2"

	"github.com/foxseedlab/kiosko/internal/audit"
	"github.com/foxseedlab/kiosko/internal/config"
)

func TestRegisterDI_WithoutDatabaseFallsBackToLog(t *testing.T) {
	injector := do.New()
	do.ProvideValue(injector, &config.Config{})
	RegisterDI(injector)

	r, err := do.Invoke[audit.Recorder](injector)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(audit.LogRecorder); !ok {
		t.Fatalf("recorder = %T", r)
	}
}
