package server

import (
	"context"

	"socialnet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ConversationView is a conversation as listed for one participant.
// PeerOnline reports whether the other participant has a chat socket open
// on this server.
type ConversationView struct {
	models.Conversation
	PeerOnline bool `json:"peerOnline"`
}

// GetConversations handles GET /api/conversations
// @Summary List conversations
// @Description The caller's conversations with full message history, most recent activity first
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ConversationView
// @Router /conversations [get]
func (s *Server) GetConversations(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), listTimeout)
	defer cancel()

	userID := currentUserID(c)
	conversations, err := s.chatService.ListConversations(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	views := make([]ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		views = append(views, ConversationView{
			Conversation: conv,
			PeerOnline:   s.chatHub.IsUserOnline(conv.OtherParticipant(userID)),
		})
	}
	return c.JSON(views)
}

// CreateConversation handles POST /api/conversations
// @Summary Get or create a conversation
// @Description Returns the existing conversation with targetId, or starts one for a credit
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{targetId=string} true "Other participant"
// @Success 200 {object} models.Conversation "existing conversation"
// @Success 201 {object} models.Conversation "new conversation"
// @Failure 402 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /conversations [post]
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	var req struct {
		TargetID string `json:"targetId" validate:"required"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	conv, created, err := s.chatService.GetOrCreateConversation(c.UserContext(), currentUserID(c), req.TargetID)
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(conv)
}

// SendMessage handles POST /api/conversations/:id/messages
// @Summary Send message
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param request body object{text=string} true "Message"
// @Success 200 {object} object{messages=[]models.Message}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	messages, err := s.chatService.SendMessage(c.UserContext(), c.Params("id"), currentUserID(c), req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}
