package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"

	RoleAdmin = "admin"

	anonymousActor = "anonymous"
	actorKey       = "actor"
)

var actorIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,64}$`)

func validActorID(id string) bool { return actorIDPattern.MatchString(id) }

// Actor is the caller identity asserted by the gateway in front of this service.
type Actor struct {
	ID   string
	Role string
}

// Actors copies the actor headers into the echo context.
func Actors() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(HeaderActorID))
			if id != "" && !validActorID(id) {
				return reject(c, http.StatusBadRequest, "invalid_actor", "invalid "+HeaderActorID)
			}
			c.Set(actorKey, Actor{
				ID:   id,
				Role: strings.ToLower(strings.TrimSpace(c.Request().Header.Get(HeaderActorRole))),
			})
			return next(c)
		}
	}
}

// RequireRole refuses callers without an actor id or with another role.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a := ActorFrom(c)
			if a.ID == "" {
				return reject(c, http.StatusUnauthorized, "missing_actor", "missing "+HeaderActorID)
			}
			if a.Role != role {
				return reject(c, http.StatusForbidden, "forbidden", "requires role "+role)
			}
			return next(c)
		}
	}
}

// ActorFrom returns the actor set by Actors, or the zero Actor.
func ActorFrom(c echo.Context) Actor {
	a, _ := c.Get(actorKey).(Actor)
	return a
}
