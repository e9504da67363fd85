package middleware

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Records logged with a
// request context carry that request's id, user and trace.
var Logger *slog.Logger

type requestInfoKey struct{}

// requestInfo is what ctxHandler stamps onto every record.
type requestInfo struct {
	requestID string
	traceID   string
	userID    uint
}

func requestInfoFrom(ctx context.Context) (requestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(requestInfo)
	return info, ok
}

// WithUserID returns ctx annotated with the signed-in user for logging.
func WithUserID(ctx context.Context, id uint) context.Context {
	info, _ := requestInfoFrom(ctx)
	info.userID = id
	return context.WithValue(ctx, requestInfoKey{}, info)
}

type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if info, ok := requestInfoFrom(ctx); ok {
		if info.requestID != "" {
			r.AddAttrs(slog.String("request_id", info.requestID))
		}
		if info.traceID != "" {
			r.AddAttrs(slog.String("trace_id", info.traceID))
		}
		if info.userID != 0 {
			r.AddAttrs(slog.Uint64("user_id", uint64(info.userID)))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

func init() {
	InitLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

// InitLogger rebuilds Logger: JSON in production, text otherwise.
func InitLogger(env, level string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	Logger = slog.New(&ctxHandler{handler})
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		if strings.EqualFold(strings.TrimSpace(level), "warning") {
			return slog.LevelWarn
		}
		return slog.LevelInfo
	}
	return l
}

// ContextMiddleware copies the request and trace ids from fiber locals into
// the request context.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(withLocals(c))
		return c.Next()
	}
}

func withLocals(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	info, _ := requestInfoFrom(ctx)
	if rid, ok := c.Locals("requestid").(string); ok {
		info.requestID = rid
	}
	if tid, ok := c.Locals("traceID").(string); ok {
		info.traceID = tid
	}
	if uid, ok := CurrentUserID(c); ok {
		info.userID = uid
	}
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// StructuredLogger writes one access log line per request. 5xx responses
// and handler errors log at error level, 4xx at warn.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			level = slog.LevelError
			attrs = append(attrs, slog.String("error", err.Error()))
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}

		// Guards run after ContextMiddleware, so the user is read again here.
		Logger.LogAttrs(withLocals(c), level, "request", attrs...)
		return err
	}
}
