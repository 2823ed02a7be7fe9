package auth

import (
	"context"
	"encoding/json"
)

type contextKey string

const (
	contextKeyUser    contextKey = "auth.user_id"
	contextKeyLevel   contextKey = "auth.access_level"
	contextKeyPayload contextKey = "auth.payload"
)

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, userID string, level AccessLevel, payload json.RawMessage) context.Context {
	ctx = context.WithValue(ctx, contextKeyUser, userID)
	ctx = context.WithValue(ctx, contextKeyLevel, level)
	ctx = context.WithValue(ctx, contextKeyPayload, payload)
	return ctx
}

// UserIDFromContext extracts the caller user id from context.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyUser)
	if userID, ok := value.(string); ok {
		return userID
	}
	return ""
}

// LevelFromContext extracts the caller access level from context.
func LevelFromContext(ctx context.Context) AccessLevel {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyLevel)
	if level, ok := value.(AccessLevel); ok {
		return level
	}
	if level, ok := value.(string); ok {
		if normalized, valid := NormalizeAccessLevel(level); valid {
			return normalized
		}
	}
	return ""
}

// PayloadFromContext extracts the opaque token payload from context.
func PayloadFromContext(ctx context.Context) json.RawMessage {
	if ctx == nil {
		return nil
	}
	value := ctx.Value(contextKeyPayload)
	if payload, ok := value.(json.RawMessage); ok {
		return payload
	}
	return nil
}
