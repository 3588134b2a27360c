package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS restricts browser access to the dashboard origins. Websocket
// upgrades are checked separately by the upgrader.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	return c.Handler
}
