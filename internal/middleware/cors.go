package middleware

import (
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

const defaultOrigin = "http://localhost:3000"

// CORS builds the cors options for the browser chat client. Credentials
// are only allowed for explicit origins; browsers reject them with "*".
func CORS(allowedOrigins []string) cors.Options {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" && !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{defaultOrigin}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Session-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Session-ID", "Retry-After"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}
}
