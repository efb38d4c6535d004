package middleware

import (
	"context"
	"net/http"

	"fleetrent/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTConfig builds the echo-jwt configuration: token validation plus
// stashing the acting operator's id and role in the request context so
// handlers and services can attribute changes.
func JWTConfig(jwtSecret string) echojwt.Config {
	return echojwt.Config{
		SigningKey: []byte(jwtSecret),
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return
			}
			sub, ok := claims["sub"].(string)
			if !ok {
				return
			}
			actorID, err := uuid.Parse(sub)
			if err != nil {
				return
			}
			ctx := context.WithValue(c.Request().Context(), common.ActorIDKey, actorID)
			if role, ok := claims["role"].(string); ok {
				ctx = context.WithValue(ctx, common.ActorRoleKey, role)
			}
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		},
	}
}

// JWTMiddleware returns the assembled JWT middleware.
func JWTMiddleware(jwtSecret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(JWTConfig(jwtSecret))
}
