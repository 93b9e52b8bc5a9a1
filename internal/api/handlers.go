package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tsudoi-app/tsudoi/internal/chat"
	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, chat.ErrNotOwner):
		return fiber.StatusForbidden
	case errors.Is(err, chat.ErrNotChannel), errors.Is(err, chat.ErrEmptyMessage):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	if status == fiber.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// POST /v1/users/:id/chat
func (s *Server) startDirectChat(c *fiber.Ctx) error {
	id, err := s.resolver.ResolveDirect(c.Context(), userID(c), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"conversation_id": id})
}

// GET /v1/chats
func (s *Server) listChats(c *fiber.Ctx) error {
	list, err := s.resolver.ListDirect(c.Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"chats": list})
}

// authorize applies the participation rule: channel feeds are member-only,
// direct conversations require a participant row.
func (s *Server) authorize(c *fiber.Ctx, conversationID string) error {
	ok, err := s.gate.CheckMembership(c.Context(), conversationID, userID(c))
	if err != nil {
		return err
	}
	if !ok {
		return errNotMember
	}
	return nil
}

var errNotMember = errors.New("not a member of this conversation")

// GET /v1/conversations/:id/messages
func (s *Server) listMessages(c *fiber.Ctx) error {
	convID := c.Params("id")
	if err := s.authorize(c, convID); err != nil {
		if err == errNotMember {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		return s.fail(c, err)
	}
	feed := s.feeds.Open(convID)
	if err := feed.Open(c.Context()); err != nil {
		return s.fail(c, err)
	}
	defer feed.Close()
	return c.JSON(fiber.Map{"messages": feed.Messages()})
}

// POST /v1/conversations/:id/messages
func (s *Server) sendMessage(c *fiber.Ctx) error {
	convID := c.Params("id")
	if err := s.authorize(c, convID); err != nil {
		if err == errNotMember {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		return s.fail(c, err)
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	feed := s.feeds.Open(convID)
	m, err := feed.Send(c.Context(), userID(c), body.Content)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// POST /v1/channels
func (s *Server) createChannel(c *fiber.Ctx) error {
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	ch, err := s.channels.Create(c.Context(), userID(c), body.Title, body.Description)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ch)
}

// GET /v1/channels?joined=1
func (s *Server) listChannels(c *fiber.Ctx) error {
	var (
		list []*model.Conversation
		err  error
	)
	if c.QueryBool("joined") {
		list, err = s.channels.ListJoined(c.Context(), userID(c))
	} else {
		list, err = s.channels.List(c.Context())
	}
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"channels": list})
}

// GET /v1/channels/:id
func (s *Server) getChannel(c *fiber.Ctx) error {
	ch, err := s.channels.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	members, err := s.channels.Members(c.Context(), ch.ID)
	if err != nil {
		return s.fail(c, err)
	}
	joined, err := s.gate.CheckMembership(c.Context(), ch.ID, userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"channel": ch, "members": members, "joined": joined})
}

// PATCH /v1/channels/:id
func (s *Server) updateChannel(c *fiber.Ctx) error {
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := s.channels.Update(c.Context(), c.Params("id"), userID(c), body.Title, body.Description); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DELETE /v1/channels/:id
func (s *Server) deleteChannel(c *fiber.Ctx) error {
	if err := s.channels.Delete(c.Context(), c.Params("id"), userID(c)); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /v1/channels/:id/join
func (s *Server) joinChannel(c *fiber.Ctx) error {
	if err := s.gate.Join(c.Context(), c.Params("id"), userID(c)); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /v1/channels/:id/leave
func (s *Server) leaveChannel(c *fiber.Ctx) error {
	if err := s.gate.Leave(c.Context(), c.Params("id"), userID(c)); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /v1/users
func (s *Server) listUsers(c *fiber.Ctx) error {
	list, err := s.profiles.List(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"users": list})
}

// GET /v1/users/:id
func (s *Server) getUser(c *fiber.Ctx) error {
	p, err := s.profiles.Lookup(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	owned, err := s.channels.ListOwned(c.Context(), p.ID)
	if err != nil {
		return s.fail(c, err)
	}
	joined, err := s.channels.ListJoined(c.Context(), p.ID)
	if err != nil {
		return s.fail(c, err)
	}
	online := false
	if s.presence != nil {
		online, _ = s.presence.GetPresence(c.Context(), p.ID)
	}
	return c.JSON(fiber.Map{"user": p, "owned_channels": owned, "joined_channels": joined, "online": online})
}

// GET /v1/me
func (s *Server) getMe(c *fiber.Ctx) error {
	p, err := s.profiles.Get(c.Context(), userID(c), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

// PUT /v1/me
func (s *Server) updateMe(c *fiber.Ctx) error {
	var p model.Profile
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	p.ID = userID(c)
	if err := s.profiles.Update(c.Context(), &p); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

// POST /v1/me/avatar
func (s *Server) uploadAvatar(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}
	url, err := s.profiles.SetAvatar(c.Context(), userID(c), body)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"avatar_url": url})
}
