package dispatch

import (
	"net/http"

	"github.com/gorilla/handlers"
)

var corsHeaders = []string{"Content-Type", "Accept", "Authorization", "X-Requested-With"}

// cors allows any origin. It wraps the router so preflight requests are
// answered before route matching rejects the OPTIONS method.
func cors(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders(corsHeaders),
		handlers.OptionStatusCode(http.StatusNoContent),
	)(next)
}
