package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/adiwidodo/classadmin-api/pkg/errors"
	"github.com/adiwidodo/classadmin-api/pkg/response"
)

// ContextSubjectKey is the gin context key storing the verified token subject.
const ContextSubjectKey = "currentSubject"

// BearerAuth verifies an HS256 bearer token signed with the shared secret.
// Token issuance belongs to the identity provider outside this service;
// only verification happens at this boundary.
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token"))
			c.Abort()
			return
		}

		if subject, subErr := token.Claims.GetSubject(); subErr == nil {
			c.Set(ContextSubjectKey, subject)
		}
		c.Next()
	}
}
