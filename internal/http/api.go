package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"courier/internal/auth"
	"courier/internal/domain"
	"courier/internal/service"
	"courier/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	messages service.MessageService
	exports  service.ExportService
	codec    *auth.TokenCodec
	logger   logrus.FieldLogger
}

func NewHandler(users service.UserService, messages service.MessageService, exports service.ExportService, codec *auth.TokenCodec, logger logrus.FieldLogger) *Handler {
	return &Handler{
		users:    users,
		messages: messages,
		exports:  exports,
		codec:    codec,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/login", h.login)
		api.POST("/auth/register", h.register)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		protected := api.Group("", authMiddleware(h.codec))
		{
			protected.GET("/users", h.listUsers)
			protected.GET("/users/:username", h.getUser)
			protected.GET("/users/:username/to", h.listMessagesTo)
			protected.GET("/users/:username/from", h.listMessagesFrom)
			protected.POST("/users/:username/export", h.exportMessages)
			protected.GET("/users/:username/exports", h.listExports)
			protected.GET("/messages/:id", h.getMessage)
			protected.POST("/messages", h.postMessage)
			protected.POST("/messages/:id/read", h.markMessageRead)
		}
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
}

type postMessageRequest struct {
	ToUsername string `json:"to_username" binding:"required"`
	Body       string `json:"body" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.codec.Issue(user.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.users.TouchLastLogin(user.Username)

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.codec.Issue(user.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.users.TouchLastLogin(user.Username)

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]ProfileResponse, len(users))
	for i := range users {
		p := users[i].Profile()
		resp[i] = profileToResponse(&p)
	}
	c.JSON(http.StatusOK, gin.H{"users": resp})
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToResponse(user)})
}

func (h *Handler) listMessagesTo(c *gin.Context) {
	messages, err := h.messages.ListTo(c.Request.Context(), currentUser(c), c.Param("username"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]MessageResponse, len(messages))
	for i := range messages {
		resp[i] = messageToResponse(messages[i], withFromUser)
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

func (h *Handler) listMessagesFrom(c *gin.Context) {
	messages, err := h.messages.ListFrom(c.Request.Context(), currentUser(c), c.Param("username"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]MessageResponse, len(messages))
	for i := range messages {
		resp[i] = messageToResponse(messages[i], withToUser)
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

func (h *Handler) exportMessages(c *gin.Context) {
	if h.exports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export storage not configured"})
		return
	}

	location, err := h.exports.Export(c.Request.Context(), currentUser(c), c.Param("username"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": location})
}

func (h *Handler) listExports(c *gin.Context) {
	if h.exports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export storage not configured"})
		return
	}

	objects, err := h.exports.ListExports(c.Request.Context(), currentUser(c), c.Param("username"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]ExportObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, gin.H{"exports": resp})
}

func (h *Handler) getMessage(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}

	msg, err := h.messages.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageToResponse(*msg, withFromUser|withToUser)})
}

func (h *Handler) postMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), currentUser(c), req.ToUsername, req.Body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": messageToResponse(*msg, 0)})
}

func (h *Handler) markMessageRead(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}

	msg, err := h.messages.MarkRead(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{"id": msg.ID, "read_at": nil}
	if msg.ReadAt != nil {
		resp["read_at"] = msg.ReadAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{"message": resp})
}

func messageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto the external status taxonomy. Not
// found and forbidden collapse into 401 so responses never reveal whether a
// resource exists.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username/password"})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "username taken"})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		h.logger.Errorf("request %s failed: %v", c.GetString(requestIDHeader), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type ProfileResponse struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type UserResponse struct {
	ProfileResponse
	JoinAt      string  `json:"join_at"`
	LastLoginAt *string `json:"last_login_at"`
}

type MessageResponse struct {
	ID           int64            `json:"id"`
	FromUsername string           `json:"from_username,omitempty"`
	ToUsername   string           `json:"to_username,omitempty"`
	Body         string           `json:"body"`
	SentAt       string           `json:"sent_at"`
	ReadAt       *string          `json:"read_at"`
	FromUser     *ProfileResponse `json:"from_user,omitempty"`
	ToUser       *ProfileResponse `json:"to_user,omitempty"`
}

type ExportObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) ExportObjectResponse {
	resp := ExportObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

type profileInclude int

const (
	withFromUser profileInclude = 1 << iota
	withToUser
)

func profileToResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
	}
}

func userToResponse(user *domain.User) UserResponse {
	p := user.Profile()
	resp := UserResponse{
		ProfileResponse: profileToResponse(&p),
		JoinAt:          user.JoinAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		v := user.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &v
	}
	return resp
}

func messageToResponse(msg domain.Message, include profileInclude) MessageResponse {
	resp := MessageResponse{
		ID:     msg.ID,
		Body:   msg.Body,
		SentAt: msg.SentAt.Format(time.RFC3339),
	}
	if include == 0 {
		resp.FromUsername = msg.FromUsername
		resp.ToUsername = msg.ToUsername
	}
	if msg.ReadAt != nil {
		v := msg.ReadAt.Format(time.RFC3339)
		resp.ReadAt = &v
	}
	if include&withFromUser != 0 && msg.FromUser != nil {
		p := profileToResponse(msg.FromUser)
		resp.FromUser = &p
	}
	if include&withToUser != 0 && msg.ToUser != nil {
		p := profileToResponse(msg.ToUser)
		resp.ToUser = &p
	}
	return resp
}
