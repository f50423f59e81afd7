package workflow

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/foxseedlab/kiosko/internal/discord"
)

func (w *Workflows) ping(ctx context.Context, in discord.Interaction) error {
	started := w.now()
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	roundTrip := w.now().Sub(started)
	stats := w.dc.Stats()
	_, err := in.Responder.Respond(ctx, discord.Reply{Embeds: []discord.Embed{{
		Title:       "🏓 Pong!",
		Description: "Estado de conexión del bot",
		Color:       colorPing,
		Fields: []discord.EmbedField{
			{Name: "📡 Latencia API", Value: fmt.Sprintf("%dms", stats.Latency.Milliseconds()), Inline: true},
			{Name: "🔗 Tiempo respuesta", Value: fmt.Sprintf("%dms", roundTrip.Milliseconds()), Inline: true},
			{Name: "⏱️ Uptime", Value: fmt.Sprintf("%d minutos", int(w.uptime().Minutes())), Inline: true},
		},
		Footer: "Bot operativo",
	}}})
	return err
}

func (w *Workflows) uptime() time.Duration {
	return w.now().Sub(w.started)
}

func (w *Workflows) system(ctx context.Context, in discord.Interaction) error {
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats := w.dc.Stats()
	up := w.uptime()

	_, err := in.Responder.Respond(ctx, discord.Reply{Embeds: []discord.Embed{{
		Title:       "💀 Información del Sistema",
		Description: "Diagnóstico del proceso del bot",
		Color:       colorSystem,
		Fields: []discord.EmbedField{
			{
				Name:   "💾 Memoria Bot",
				Value:  fmt.Sprintf("**Heap:** %s\n**Reservada:** %s\n**GC:** %d ciclos", humanize.IBytes(ms.HeapAlloc), humanize.IBytes(ms.Sys), ms.NumGC),
				Inline: true,
			},
			{
				Name:   "🖥️ Sistema",
				Value:  fmt.Sprintf("**OS:** %s\n**Arquitectura:** %s\n**CPUs:** %d", runtime.GOOS, runtime.GOARCH, runtime.NumCPU()),
				Inline: true,
			},
			{
				Name:  "⏱️ Uptime",
				Value: fmt.Sprintf("**Bot:** %dh %dm\n**Goroutines:** %d", int(up.Hours()), int(up.Minutes())%60, runtime.NumGoroutine()),
			},
			{
				Name:  "🌐 Estadísticas",
				Value: fmt.Sprintf("**Servidores:** %d\n**Usuarios:** %d\n**Canales:** %d\n**Sesiones activas:** %d", stats.Guilds, stats.Users, stats.Channels, w.sessions.Len()),
			},
		},
		Footer: runtime.Version(),
	}}})
	return err
}

func (w *Workflows) verifyConfig(ctx context.Context, in discord.Interaction) error {
	if err := in.Responder.Defer(ctx, true); err != nil {
		return err
	}
	var configured, missing []string
	for _, p := range w.cfg.Providers() {
		if p.Configured {
			configured = append(configured, fmt.Sprintf("🟢 `%s`", p.Name))
		} else {
			missing = append(missing, fmt.Sprintf("🔴 `%s`", p.Name))
		}
	}

	e := discord.Embed{Title: "✅ Verificación de entorno", Color: colorSuccess}
	if len(configured) > 0 {
		e.Fields = append(e.Fields, discord.EmbedField{Name: "✅ Configurado", Value: strings.Join(configured, "\n")})
	}
	if len(missing) > 0 {
		e.Color = colorPending
		e.Fields = append(e.Fields, discord.EmbedField{
			Name:  "❌ Faltante",
			Value: strings.Join(missing, "\n") + "\n\n**Algunas funciones estarán limitadas.**",
		})
	} else {
		e.Description = "🎉 Todas las configuraciones están completas. El bot está totalmente funcional."
	}

	pending := "?"
	if codes, err := w.ledger.PendingCodes(ctx); err == nil {
		pending = fmt.Sprintf("%d", len(codes))
	}
	stats := w.dc.Stats()
	e.Fields = append(e.Fields,
		discord.EmbedField{Name: "📊 Servidores", Value: fmt.Sprintf("%d", stats.Guilds), Inline: true},
		discord.EmbedField{Name: "👥 Usuarios", Value: fmt.Sprintf("%d", stats.Users), Inline: true},
		discord.EmbedField{Name: "⏱️ Uptime", Value: fmt.Sprintf("%dm", int(w.uptime().Minutes())), Inline: true},
		discord.EmbedField{Name: "🔑 Códigos disponibles", Value: pending, Inline: true},
	)
	_, err := in.Responder.Respond(ctx, discord.Reply{Embeds: []discord.Embed{e}, Ephemeral: true})
	return err
}

func (w *Workflows) help(ctx context.Context, in discord.Interaction) error {
	_, err := in.Responder.Respond(ctx, discord.Reply{Embeds: []discord.Embed{{
		Title:       "📚 Comandos del Bot",
		Description: "Lista completa de comandos disponibles",
		Color:       colorInfo,
		Fields: []discord.EmbedField{
			{Name: "🧠 Inteligencia Artificial", Value: "`/ia` - Genera respuestas inteligentes\n`/consejo` - Recibe consejos útiles\n`/scripter-ia` - Genera scripts de Roblox"},
			{Name: "📥 Descargas", Value: "`/descargar` - Descarga de YouTube\n`/info` - Vista previa antes de descargar"},
			{Name: "🖼️ Imágenes y Videos", Value: "`/imagen` - Busca imágenes en Google\n`/imagenes-public` - Imágenes de Pexels\n`/videos-public` - Videos de Pexels"},
			{Name: "🔗 Utilidades", Value: "`/ping` - Verifica latencia\n`/sistema` - Info del sistema\n`/revisar-enlace` - Analiza URLs\n`/descifrar` - Contraseña secreta"},
			{Name: "📨 Administración", Value: "`/enviar-mensaje` - Envía mensajes\n`/verificar` - Verifica configuración\n`/generar-codigo` - Genera códigos (owner)"},
		},
		Footer: "Usa los comandos con / para comenzar",
	}}})
	return err
}
