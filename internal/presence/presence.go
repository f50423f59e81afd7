package presence

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/foxseedlab/kiosko/internal/discord"
)

var statusTexts = []string{
	"⚡ Servidor multi-comunidad activo",
	"🎭 Gestionando eventos de Discord",
	"📦 Sistema de descargas optimizado",
	"💀 Escaneando seguridad digital",
	"📡 Transmitiendo con registro avanzado",
	"🔐 Monitoreo de seguridad activo",
	"📷 Motor de búsqueda de imágenes",
	"📹 Procesador de videos integrado",
	"🔗 Análisis de enlaces con VirusTotal",
	"💡 Asistente IA conversacional",
	"🧠 Respuestas potenciadas por Gemini",
}

// Setter is the part of the gateway the rotator needs.
type Setter interface {
	UpdatePresence(text string) error
	Stats() discord.Stats
}

// Rotator cycles the bot's status text on a fixed interval.
type Rotator struct {
	setter   Setter
	interval time.Duration

	mu    sync.Mutex
	index int
	cron  *cron.Cron
}

func NewRotator(setter Setter, interval time.Duration) *Rotator {
	return &Rotator{setter: setter, interval: interval}
}

// Start shows the first status immediately and schedules the rest.
func (r *Rotator) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.interval), r.Tick); err != nil {
		return fmt.Errorf("failed to schedule presence rotation: %w", err)
	}
	r.cron = c
	go r.Tick()
	c.Start()
	slog.Info("presence rotation started", "interval", r.interval.String())
	return nil
}

// Stop halts rotation and waits for a running tick.
func (r *Rotator) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// Tick sets the next status text.
func (r *Rotator) Tick() {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in presence rotation", "panic", rec)
		}
	}()
	text := r.next()
	if err := r.setter.UpdatePresence(text); err != nil {
		slog.Warn("failed to update presence", "text", text, "error", err)
	}
}

func (r *Rotator) next() string {
	r.mu.Lock()
	i := r.index
	r.index = (r.index + 1) % (len(statusTexts) + 1)
	r.mu.Unlock()
	if i < len(statusTexts) {
		return statusTexts[i]
	}
	return fmt.Sprintf("🌐 Conectado a %d servidores", r.setter.Stats().Guilds)
}
