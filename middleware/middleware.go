// Package middleware provides HTTP authorization middleware for Steward.
// A denied check maps to a 403 response; the caller never sees store or
// resolver failures, which deny like any other miss.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
)

// Require enforces an action on a resource type. It resolves the subject
// from the request context (Forge user > anonymous) and takes the resource
// ID from the "id" route parameter.
func Require(eng *steward.Engine, action, resourceType string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			resourceID := ctx.Param("id")

			allowed, err := eng.CheckAccess(ctx.Context(), subject, resourceType, resourceID, action)
			if err != nil || !allowed {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireRelation enforces a raw relation on an object type, bypassing the
// action-to-permission mapping.
func RequireRelation(eng *steward.Engine, relation steward.Relation, objectType string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			object := steward.NewObject(objectType, ctx.Param("id"))

			allowed, err := eng.Check(ctx.Context(), subject, relation, object)
			if err != nil || !allowed {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if the subject holds any of the relations
// on the object identified by the "id" route parameter.
func RequireAny(eng *steward.Engine, objectType string, relations ...steward.Relation) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			object := steward.NewObject(objectType, ctx.Param("id"))

			for _, rel := range relations {
				allowed, err := eng.Check(ctx.Context(), subject, rel, object)
				if err == nil && allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// resolveSubject extracts the subject from context.
// Priority: Forge user ID (from Authsome) → anonymous.
func resolveSubject(ctx forge.Context) steward.Subject {
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return steward.User(userID)
	}
	return steward.Subject{Type: "unknown", ID: "anonymous"}
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
