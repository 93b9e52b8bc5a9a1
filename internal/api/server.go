package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/auth"
	"github.com/tsudoi-app/tsudoi/internal/cache"
	"github.com/tsudoi-app/tsudoi/internal/chat"
	"github.com/tsudoi-app/tsudoi/internal/profile"
)

type Server struct {
	resolver *chat.Resolver
	gate     *chat.Gate
	channels *chat.Channels
	feeds    *chat.Feeds
	profiles *profile.Service
	presence *cache.Client
	log      *zap.SugaredLogger
}

type Options struct {
	Resolver  *chat.Resolver
	Gate      *chat.Gate
	Channels  *chat.Channels
	Feeds     *chat.Feeds
	Profiles  *profile.Service
	Presence  *cache.Client
	Validator *auth.Validator
	Log       *zap.SugaredLogger

	// Per-user message send limit per window; 0 disables.
	SendLimit  int
	SendWindow time.Duration
}

func New(opts Options) *fiber.App {
	s := &Server{
		resolver: opts.Resolver,
		gate:     opts.Gate,
		channels: opts.Channels,
		feeds:    opts.Feeds,
		profiles: opts.Profiles,
		presence: opts.Presence,
		log:      opts.Log,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	v1 := app.Group("/v1", requireAuth(opts.Validator))

	v1.Post("/users/:id/chat", s.startDirectChat)
	v1.Get("/chats", s.listChats)

	v1.Get("/conversations/:id/messages", s.listMessages)
	if opts.SendLimit > 0 && opts.Presence != nil {
		limiter := newRateLimiter(opts.Presence.Cli, "ratelimit:send", opts.SendLimit, opts.SendWindow)
		v1.Post("/conversations/:id/messages", limiter.middleware(), s.sendMessage)
	} else {
		v1.Post("/conversations/:id/messages", s.sendMessage)
	}

	v1.Get("/conversations/:id/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals("conversation_id", c.Params("id"))
		return websocket.New(s.liveFeed)(c)
	})

	v1.Post("/channels", s.createChannel)
	v1.Get("/channels", s.listChannels)
	v1.Get("/channels/:id", s.getChannel)
	v1.Patch("/channels/:id", s.updateChannel)
	v1.Delete("/channels/:id", s.deleteChannel)
	v1.Post("/channels/:id/join", s.joinChannel)
	v1.Post("/channels/:id/leave", s.leaveChannel)

	v1.Get("/users", s.listUsers)
	v1.Get("/users/:id", s.getUser)
	v1.Get("/me", s.getMe)
	v1.Put("/me", s.updateMe)
	v1.Post("/me/avatar", s.uploadAvatar)

	return app
}
