package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Origins is a browser origin allowlist. An empty list or "*" allows any origin.
type Origins map[string]bool

// ParseOrigins reads a comma-separated list such as "http://localhost:3000,https://app.example.com".
func ParseOrigins(s string) Origins {
	o := make(Origins)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			o[part] = true
		}
	}
	return o
}

func (o Origins) any() bool { return len(o) == 0 || o["*"] }

// Allows reports whether a request from origin may proceed. Requests without an
// Origin header are not browser cross-origin requests and always pass.
func (o Origins) Allows(origin string) bool {
	return origin == "" || o.any() || o[origin]
}

// CheckOrigin matches the websocket.Upgrader hook so /ws shares the HTTP allowlist.
func (o Origins) CheckOrigin(r *http.Request) bool {
	return o.Allows(r.Header.Get("Origin"))
}

// CORS sets the cross-origin headers for the REST API and the SSE event feed.
// Requests from an origin outside the allowlist are rejected with 403.
func CORS(origins Origins) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "Last-Event-ID"},
		MaxAge:       24 * time.Hour,
	}
	if origins.any() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOriginFunc = origins.Allows
	}
	return cors.New(cfg)
}
