package workflow

import "github.com/foxseedlab/kiosko/internal/discord"

var formatChoices = []discord.SlashCommandOptionChoice{
	{Name: "MP3 (Audio)", Value: "mp3"},
	{Name: "MP4 (Video)", Value: "mp4"},
}

func (w *Workflows) commands() []command {
	return []command{
		{
			def: discord.SlashCommandDefinition{
				Name:        "ia",
				Description: "🧠 Genera respuesta inteligente usando IA avanzada",
				Options:     []discord.SlashCommandOption{{Name: "pregunta", Description: "Tu pregunta o texto para la IA", Required: true}},
			},
			run: w.ask,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "descargar",
				Description: "📥 Descarga videos de YouTube en MP3 o MP4",
				Options: []discord.SlashCommandOption{
					{Name: "formato", Description: "Formato de salida", Required: true, Choices: formatChoices},
					{Name: "url", Description: "URL del video de YouTube", Required: true},
				},
			},
			run: w.descargar,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "info",
				Description: "🔍 Muestra información del video antes de descargar",
				Options: []discord.SlashCommandOption{
					{Name: "formato", Description: "Formato deseado", Required: true, Choices: formatChoices},
					{Name: "url", Description: "URL del video", Required: true},
				},
			},
			run: w.info,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "imagen",
				Description: "🖼️ Busca imágenes usando Google",
				Options:     []discord.SlashCommandOption{{Name: "busqueda", Description: "¿Qué imagen deseas buscar?", Required: true}},
			},
			run: w.googleImages,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "imagenes-public",
				Description: "📷 Busca imágenes públicas de alta calidad en Pexels",
				Options:     []discord.SlashCommandOption{{Name: "busqueda", Description: "Término de búsqueda", Required: true}},
			},
			run: w.pexelsImages,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "videos-public",
				Description: "📹 Busca y descarga videos públicos de Pexels",
				Options:     []discord.SlashCommandOption{{Name: "busqueda", Description: "Término de búsqueda", Required: true}},
			},
			run: w.stockVideo,
		},
		{
			def: discord.SlashCommandDefinition{Name: "ping", Description: "🏓 Verifica la latencia del bot"},
			run: w.ping,
		},
		{
			def: discord.SlashCommandDefinition{Name: "sistema", Description: "🖥️ Muestra información del sistema y rendimiento"},
			run: w.system,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "enviar-mensaje",
				Description: "📨 Envía un mensaje a través del bot con confirmación",
				Options:     []discord.SlashCommandOption{{Name: "contenido", Description: "Contenido del mensaje", Required: true}},
			},
			run: w.sendMessage,
		},
		{
			def: discord.SlashCommandDefinition{Name: "consejo", Description: "💡 Recibe un consejo útil generado por IA"},
			run: w.advice,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "revisar-enlace",
				Description: "🔗 Analiza un enlace con VirusTotal y vista previa",
				Options:     []discord.SlashCommandOption{{Name: "url", Description: "URL a analizar", Required: true}},
			},
			run: w.checkLink,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "descifrar",
				Description: "🔐 Intenta descifrar la contraseña secreta",
				Options:     []discord.SlashCommandOption{{Name: "clave", Description: "Tu intento de contraseña", Required: true}},
			},
			run: w.decipher,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "scripter-ia",
				Description: "📜 Genera scripts de Roblox Lua con IA",
				Options: []discord.SlashCommandOption{
					{Name: "idea", Description: "Describe el script que necesitas", Required: true},
					{Name: "codigo", Description: "Código de verificación (opcional si el servidor está verificado)"},
				},
			},
			run: w.scripter,
		},
		{
			def: discord.SlashCommandDefinition{
				Name:        "generar-codigo",
				Description: "🔑 Genera un código de verificación único (solo owner)",
				Options:     []discord.SlashCommandOption{{Name: "prefijo", Description: "Prefijo del código (script_, verify_, auth_, etc.)", Required: true}},
			},
			run: w.generateCode,
		},
		{
			def: discord.SlashCommandDefinition{Name: "verificar", Description: "✅ Verifica la configuración del bot", AdminOnly: true},
			run: w.verifyConfig,
		},
		{
			def: discord.SlashCommandDefinition{Name: "ayuda", Description: "📚 Muestra todos los comandos disponibles con ejemplos"},
			run: w.help,
		},
	}
}
