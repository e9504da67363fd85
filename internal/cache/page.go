package cache

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"quill/internal/middleware"
	"quill/internal/observability"

	"github.com/gofiber/fiber/v2"
)

type cachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// PageKey identifies a rendered page by route name and canonical query string.
func PageKey(route string, query url.Values) string {
	return pagePrefix(route) + query.Encode()
}

// PageCache serves successful GET responses of a route from Redis for ttl.
// Different query strings (?page=2) are cached separately.
func PageCache(route string, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if client == nil || ttl <= 0 || (c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead) {
			return c.Next()
		}

		query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
		if err != nil {
			return c.Next()
		}
		key := PageKey(route, query)
		ctx := c.UserContext()

		var page cachedPage
		if found, err := GetJSON(ctx, key, &page); err == nil && found {
			observability.PageCacheRequests.WithLabelValues(route, "hit").Inc()
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, page.ContentType)
			return c.Status(page.Status).Send(page.Body)
		}
		observability.PageCacheRequests.WithLabelValues(route, "miss").Inc()

		if err := c.Next(); err != nil {
			return err
		}
		c.Set("X-Cache", "MISS")

		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		page = cachedPage{
			Status:      fiber.StatusOK,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := SetJSON(ctx, key, page, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "page cache store failed",
				slog.String("route", route), slog.String("error", err.Error()))
		}
		return nil
	}
}

// InvalidatePages drops every cached page of route.
func InvalidatePages(ctx context.Context, route string) {
	if client == nil {
		return
	}
	pattern := pagePrefix(route) + "*"
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "page cache scan failed",
			slog.String("route", route), slog.String("error", err.Error()))
		return
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}
