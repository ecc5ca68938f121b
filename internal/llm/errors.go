package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/sashabaranov/go-openai"
)

// Describe maps a failed call to a plain-language notice for the user.
// It distinguishes timeouts, connection problems and API rejections without
// exposing transport internals.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *openai.APIError
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "el modelo tardó demasiado en responder, intenta de nuevo"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("el servicio del modelo rechazó la petición (HTTP %d)", apiErr.HTTPStatusCode)
	case errors.As(err, &netErr) && netErr.Timeout():
		return "se agotó el tiempo de espera de la conexión con el modelo"
	case errors.As(err, &urlErr):
		return "no se pudo conectar con el servicio del modelo, revisa tu red o proxy"
	default:
		return "no se pudo obtener respuesta del modelo"
	}
}
