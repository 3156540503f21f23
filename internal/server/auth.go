package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "socialnet-api"
	tokenAudience = "socialnet-client"
	// TokenTTL is how long an issued session token stays valid.
	TokenTTL = 30 * 24 * time.Hour

	wsTicketTTL    = 30 * time.Second
	wsTicketPrefix = "ws_ticket:"
	blacklistKey   = "blacklist:"
)

// generateToken creates a signed session token for userID.
func (s *Server) generateToken(userID string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// parseToken verifies signature, expiry, issuer and audience.
func (s *Server) parseToken(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return []byte(s.config.JWTSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (s *Server) authenticate(c *fiber.Ctx, userID string) error {
	c.Locals("userID", userID)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
	return c.Next()
}

// AuthRequired returns the authentication middleware. WebSocket routes may
// authenticate with a single-use ?ticket= since browsers cannot set headers
// on the upgrade request.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws/") && c.Method() == fiber.MethodGet

		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			if s.redis == nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewInvalidTokenError("WebSocket tickets are unavailable"))
			}
			userID, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
			if err != nil || userID == "" {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewInvalidTokenError("Invalid or expired WebSocket ticket"))
			}
			return s.authenticate(c, userID)
		}

		tokenString := bearerToken(c)
		if tokenString == "" && isWSPath {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}

		claims, err := s.parseToken(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewInvalidTokenError("Invalid or expired token"))
		}

		if claims.ID != "" && s.redis != nil {
			revoked, err := s.redis.Exists(ctx, blacklistKey+claims.ID).Result()
			if err == nil && revoked > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewInvalidTokenError("Token has been revoked"))
			}
		}

		c.Locals("jti", claims.ID)
		if claims.ExpiresAt != nil {
			c.Locals("tokenExp", claims.ExpiresAt.Time)
		}
		return s.authenticate(c, claims.Subject)
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.adminService.IsAdmin(c.UserContext(), currentUserID(c))
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Admin access required"))
			}
			return respondServiceError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a WebSocket ticket
// @Description Returns a single-use ticket valid for 30 seconds to open /api/ws/chat
// @Tags realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "WebSocket tickets require Redis; connect with ?token= instead",
		})
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket, currentUserID(c), wsTicketTTL).Err(); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}
