package workflow

const (
	msgAINotConfigured     = "⚠️ La IA no está configurada. Contacta al administrador del bot."
	msgAIShortNotConfigure = "⚠️ IA no configurada."
	msgAIEmpty             = "⚠️ La IA no pudo generar una respuesta. Intenta reformular tu pregunta."
	msgAIFailed            = "⚠️ Error generando respuesta. La IA puede estar temporalmente no disponible."
	msgAdviceFailed        = "⚠️ No se pudo generar el consejo."
	msgScriptFailed        = "⚠️ Error generando el script."
	msgNotVerified         = "🔐 Este servidor no está verificado. Proporciona un código de verificación válido."
	msgInvalidCode         = "❌ Código de verificación inválido o ya usado."
	msgVerified            = "✅ Servidor verificado exitosamente. Generando script..."

	msgAnswerSaved  = "✅ Respuesta enviada a tu MD"
	msgSavedToDM    = "✅ Enviado a tu MD"
	msgImageSaved   = "✅ Imagen enviada a tu MD"
	msgDMClosed     = "🚫 No pude enviarte MD"
	msgDMClosedLong = "🚫 No pude enviarte MD. Activa tus mensajes directos."

	msgVideoNotConfigured = "⚠️ Las descargas de video no están configuradas."
	msgInvalidVideoURL    = "❌ URL de YouTube inválida. Verifica el enlace e intenta nuevamente."
	msgInvalidVideoShort  = "❌ URL de YouTube inválida."
	msgVideoTooLong       = "⚠️ El video es demasiado largo. Máximo permitido: %d minutos."
	msgFileTooLarge       = "⚠️ El archivo supera los %s. Discord no permite enviarlo."
	msgDownloadFailed     = "❌ Error al descargar el video. Verifica que el video sea público y accesible."
	msgInfoFailed         = "❌ No se pudo obtener la información del video."

	msgImagesNotConfigured = "⚠️ La búsqueda de imágenes no está configurada."
	msgImagesNotFound      = "⚠️ No se encontraron imágenes para esa búsqueda."
	msgImagesFailed        = "❌ Error al buscar imágenes. Intenta con otro término."
	msgPexelsNotConfigured = "⚠️ Pexels no está configurado."
	msgPexelsNotFound      = "⚠️ No se encontraron imágenes en Pexels."
	msgPexelsFailed        = "❌ Error al buscar en Pexels."
	msgVideosNotFound      = "⚠️ No se encontraron videos."
	msgStockVideoTooLarge  = "⚠️ El video supera los %s."
	msgStockVideoFailed    = "❌ Error al procesar el video."

	msgSendTimeout   = "⏱️ Tiempo agotado. Envío cancelado."
	msgSendFailed    = "⚠️ No se pudo enviar el mensaje. Verifica los permisos del bot."
	msgLogDeleted    = "✅ Mensaje eliminado"
	msgLogDeleteFail = "⚠️ No se pudo eliminar el mensaje"

	msgSecretNotConfigured = "⚠️ La contraseña secreta no está configurada."

	msgLinkNotConfigured = "⚠️ Servicios de análisis no configurados."
	msgLinkFailed        = "❌ Error al analizar el enlace. Verifica que sea válido."

	msgOwnerOnly     = "🚫 Solo el propietario del bot puede generar códigos."
	msgOwnerMissing  = "⚠️ No hay un propietario configurado para generar códigos."
	msgPrefixInvalid = "⚠️ El prefijo debe ser uno de: %s"
	msgCodeGenFailed = "❌ Error al generar el código."
)

const (
	colorAnswer   = 0x0099ff
	colorAdvice   = 0xffcc00
	colorScript   = 0x00ff99
	colorDownload = 0x9b59b6
	colorInfo     = 0x3498db
	colorGoogle   = 0xff0066
	colorPexels   = 0x05a081
	colorStock    = 0xff6699
	colorPing     = 0x33ccff
	colorSystem   = 0x8b0000
	colorPending  = 0xffa500
	colorSuccess  = 0x00ff00
	colorDanger   = 0xff0000
	colorLog      = 0x00cc99
	colorSecret   = 0x00ff99
	colorAlert    = 0xff3333
)
