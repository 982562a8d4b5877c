package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	messagingapp "motomarket/internal/app/handlers/messaging"
	"motomarket/internal/app/queries"
)

const defaultMessagePage = 50

type ChatHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type startConversationRequest struct {
	SellerID       string `json:"sellerId"`
	ListingID      string `json:"listingId"`
	InitialMessage string `json:"initialMessage"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h ChatHandler) ListConversations(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	query := messagingapp.ListConversationsQuery{UserID: p.ID()}
	result, err := queries.Ask[messagingapp.ListConversationsQuery, dto.ConversationList](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StartConversation returns 201 for a new thread and 200 when the pair
// already talks about the same listing.
func (h ChatHandler) StartConversation(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid conversation payload")
		return
	}
	cmd := messagingapp.StartConversationCommand{
		UserID:         p.ID(),
		SellerID:       req.SellerID,
		ListingID:      req.ListingID,
		InitialMessage: req.InitialMessage,
		RequestKey:     requestKey(c),
	}
	result, err := commands.Dispatch[messagingapp.StartConversationCommand, dto.ConversationStart](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h ChatHandler) ListMessages(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	query := messagingapp.ListMessagesQuery{
		UserID:         p.ID(),
		ConversationID: c.Param("id"),
		Limit:          queryIntOr(c, "limit", defaultMessagePage),
		BeforeID:       c.Query("before_id"),
	}
	before, ok := queryTime(c, "before")
	if !ok {
		badRequest(c, "before must be an RFC3339 timestamp")
		return
	}
	query.Before = before
	result, err := queries.Ask[messagingapp.ListMessagesQuery, dto.ChatMessageList](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ChatHandler) SendMessage(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid message payload")
		return
	}
	cmd := messagingapp.SendMessageCommand{
		SenderID:       p.ID(),
		ConversationID: c.Param("id"),
		Content:        req.Content,
		RequestKey:     requestKey(c),
	}
	result, err := commands.Dispatch[messagingapp.SendMessageCommand, dto.ChatMessage](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	cmd := messagingapp.MarkConversationReadCommand{UserID: p.ID(), ConversationID: c.Param("id")}
	result, err := commands.Dispatch[messagingapp.MarkConversationReadCommand, dto.ConversationReadResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ChatHTTP = ChatHandler{}
