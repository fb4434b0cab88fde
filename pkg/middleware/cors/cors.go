package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Options tunes the middleware. Zero-valued fields fall back to defaults
// covering this API's surface: credentialed JSON requests carrying the
// bearer token and the request-id header, and the verbs the routes serve.
type Options struct {
	AllowedOrigins []string
	AllowedHeaders []string
	AllowedMethods []string
	MaxAge         time.Duration
}

var (
	defaultHeaders = []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"}
	defaultMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
)

// New returns CORS middleware honoring a list of allowed origins with
// default headers, methods and preflight lifetime.
func New(allowedOrigins []string) gin.HandlerFunc {
	return WithOptions(Options{AllowedOrigins: allowedOrigins})
}

// WithOptions returns CORS middleware with full control over the policy.
// An empty origin list allows every origin.
func WithOptions(opts Options) gin.HandlerFunc {
	if len(opts.AllowedHeaders) == 0 {
		opts.AllowedHeaders = defaultHeaders
	}
	if len(opts.AllowedMethods) == 0 {
		opts.AllowedMethods = defaultMethods
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 10 * time.Minute
	}

	allowAll := len(opts.AllowedOrigins) == 0
	originSet := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}

	headers := strings.Join(opts.AllowedHeaders, ", ")
	methods := strings.Join(opts.AllowedMethods, ", ")
	maxAge := strconv.Itoa(int(opts.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll || originAllowed(originSet, origin) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
		} else if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", headers)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methods)
		c.Writer.Header().Set("Access-Control-Max-Age", maxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(originSet map[string]struct{}, origin string) bool {
	_, ok := originSet[strings.TrimRight(origin, "/")]
	return ok
}
