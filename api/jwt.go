package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"remate/auction"
	"remate/models"
	"remate/store"
)

// Claims is the token payload issued by the identity service. Subject
// carries the user id; the role flags gate the privileged surface.
type Claims struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"isAdmin"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
	jwt.RegisteredClaims
}

func ParseAndValidateJWT(tokenString string, secret []byte, opts ...jwt.ParserOption) (*Claims, error) {
	const op = "ParseJWT"
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: token is invalid", op)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("%s: token claims are invalid", op)
	}
	return claims, nil
}

const callerKey = "remate-caller"

// authenticate resolves the bearer token (header or access_token cookie)
// into a Caller on the gin context. Operations receive the caller
// explicitly; nothing downstream reads the token again.
func (impl *ServerImpl) authenticate() gin.HandlerFunc {
	opts := make([]jwt.ParserOption, 0, 2)
	if impl.config.Auth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(impl.config.Auth.Issuer))
	}
	if impl.config.Auth.Audience != "" {
		opts = append(opts, jwt.WithAudience(impl.config.Auth.Audience))
	}
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required", "reason": "unauthenticated"})
			return
		}
		claims, err := ParseAndValidateJWT(tokenString, []byte(impl.config.Auth.Secret), opts...)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token", "reason": "unauthenticated"})
			return
		}
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token subject", "reason": "unauthenticated"})
			return
		}
		caller := auction.Caller{
			ID:           userID,
			Username:     claims.Username,
			IsAdmin:      claims.IsAdmin,
			IsSuperAdmin: claims.IsSuperAdmin,
		}
		if err := impl.ensureUser(c, caller, claims.Email); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error", "reason": "internal"})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie
	}
	return ""
}

func callerFrom(c *gin.Context) auction.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(auction.Caller); ok {
			return caller
		}
	}
	return auction.Caller{}
}

// ensureUser materializes the account on first authenticated request.
// Identity lives with the external service; locally we only need the row
// other tables reference.
func (impl *ServerImpl) ensureUser(c *gin.Context, caller auction.Caller, email string) error {
	_, err := impl.store.GetUser(c.Request.Context(), caller.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return impl.store.CreateUser(c.Request.Context(), &models.User{
		ID:           caller.ID,
		Username:     caller.Username,
		Email:        email,
		IsAdmin:      caller.IsAdmin,
		IsSuperAdmin: caller.IsSuperAdmin,
	})
}
