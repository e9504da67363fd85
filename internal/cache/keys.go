package cache

import (
	"context"
	"log/slog"
	"time"

	"quill/internal/middleware"
)

// Lifetimes of cached lookups. Profiles never change after signup, groups
// only through cmd/admin, which invalidates explicitly.
const (
	UserTTL  = 5 * time.Minute
	GroupTTL = 10 * time.Minute
)

// UserKey is the lookup key for a profile by username.
func UserKey(username string) string { return "user:name:" + username }

// GroupKey is the lookup key for a group by slug.
func GroupKey(slug string) string { return "group:" + slug }

// pagePrefix prefixes every cached rendering of route.
func pagePrefix(route string) string { return "page:" + route + ":" }

// InvalidateGroup drops the cached group so the next lookup reads the
// database again.
func InvalidateGroup(ctx context.Context, slug string) {
	if client == nil {
		return
	}
	if err := client.Del(ctx, GroupKey(slug)).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "group cache invalidation failed",
			slog.String("slug", slug), slog.String("error", err.Error()))
	}
}
