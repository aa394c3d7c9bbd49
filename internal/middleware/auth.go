package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-backoffice/internal/handler"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
)

const ContextActor = "actor"

// Claims is the bearer token payload issued by the authentication service.
type Claims struct {
	jwt.RegisteredClaims
	Role       model.Role `json:"role"`
	EmployeeID string     `json:"employee_id,omitempty"`
	ClinicID   string     `json:"clinic_id,omitempty"`
}

// Actor converts the claims into the caller every write gate reasons about.
func (c *Claims) Actor() (model.Actor, error) {
	if !c.Role.IsValid() {
		return model.Actor{}, fmt.Errorf("unknown role %q", c.Role)
	}
	actor := model.Actor{Role: c.Role}
	if c.EmployeeID != "" {
		id, err := uuid.Parse(c.EmployeeID)
		if err != nil {
			return model.Actor{}, fmt.Errorf("invalid employee_id: %w", err)
		}
		actor.EmployeeID = &id
	}
	if c.ClinicID != "" {
		id, err := uuid.Parse(c.ClinicID)
		if err != nil {
			return model.Actor{}, fmt.Errorf("invalid clinic_id: %w", err)
		}
		actor.ClinicID = &id
	}
	return actor, nil
}

type AuthMiddleware struct {
	secret []byte
	issuer string
}

func NewAuthMiddleware(secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Authenticate verifies the bearer token and stores the actor in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.parse(parts[1])
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}
		actor, err := claims.Actor()
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}

		SetActor(c, actor)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("admin role required"))
			return
		}
		c.Next()
	}
}

// Sign issues a token for actor. Used by tooling and tests.
func (m *AuthMiddleware) Sign(actor model.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: actor.Role,
	}
	if actor.EmployeeID != nil {
		claims.EmployeeID = actor.EmployeeID.String()
		claims.Subject = claims.EmployeeID
	}
	if actor.ClinicID != nil {
		claims.ClinicID = actor.ClinicID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *AuthMiddleware) parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

func SetActor(c *gin.Context, actor model.Actor) {
	c.Set(ContextActor, actor)
}

func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
