package router

import "github.com/foxseedlab/kiosko/internal/apperror"

const (
	msgUnauthorized = "🚫 Solo quien inició esta interacción puede usar estos botones."
	msgExpired      = "⏱️ Esta interacción ya expiró. Ejecuta el comando de nuevo."
	msgRejected     = "⚠️ Esa acción no está disponible en este momento."
	errorTitle      = "❌ Error"
	errorFooter     = "Si el problema persiste, contacta al administrador"
	errorColor      = 0xff0000
)

var errorMessages = map[apperror.Kind]string{
	apperror.KindConfigurationMissing:   "⚠️ Esta función no está configurada. Contacta al administrador del bot.",
	apperror.KindInvalidInput:           "❌ Entrada inválida. Verifica los datos e intenta nuevamente.",
	apperror.KindUnauthorized:           "🚫 No tienes permiso para hacer esto.",
	apperror.KindNotFound:               "⚠️ No se encontraron resultados.",
	apperror.KindProviderFailure:        "⚠️ El servicio externo no está disponible. Intenta más tarde.",
	apperror.KindSizeOrDurationExceeded: "⚠️ El contenido supera los límites permitidos (10 minutos / 25MB).",
	apperror.KindExpired:                msgExpired,
	apperror.KindInternal:               "Ocurrió un error procesando tu solicitud. Intenta nuevamente.",
}

func errorMessage(kind apperror.Kind) string {
	if m, ok := errorMessages[kind]; ok {
		return m
	}
	return errorMessages[apperror.KindInternal]
}
