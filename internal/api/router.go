package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pokermates/internal/middleware"
	"pokermates/internal/service"
	"pokermates/internal/service/ledger"
	"pokermates/internal/ws"
	appErr "pokermates/pkg/errors"
	"pokermates/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Coordinator)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/pokermates/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", handler.Register)
			authGroup.POST("/login", handler.Login)
		}

		userGroup := v1.Group("/user")
		userGroup.Use(middleware.AuthRequired())
		{
			userGroup.GET("/profile", handler.GetProfile)
		}

		roomGroup := v1.Group("/rooms")
		roomGroup.Use(middleware.AuthRequired())
		{
			roomGroup.GET("", handler.ListRooms)
			roomGroup.POST("", handler.CreateRoom)
			roomGroup.POST("/join", handler.JoinRoom)
			roomGroup.GET("/:id", handler.GetRoom)
			roomGroup.GET("/code/:code", handler.GetRoomByCode)
			roomGroup.POST("/:id/leave", handler.LeaveRoom)
		}
	}

	r.GET("/ws/table/:roomId", wsHandler.HandleTableWS)
}

type credentialsBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createRoomBody struct {
	Name       string `json:"name" binding:"required"`
	MaxPlayers int    `json:"maxPlayers"`
	SmallBlind int64  `json:"smallBlind" binding:"required,min=1"`
	BigBlind   int64  `json:"bigBlind" binding:"required,min=1"`
	BuyIn      int64  `json:"buyIn" binding:"required,min=1"`
}

type joinRoomBody struct {
	RoomCode string `json:"roomCode" binding:"required"`
	BuyIn    int64  `json:"buyIn" binding:"required,min=1"`
}

func (h *Handler) Register(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.services.Auth.Register(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		switch {
		case errors.Is(err, appErr.ErrUsernameTaken):
			response.Error(c, http.StatusConflict, err.Error())
		case errors.Is(err, appErr.ErrInvalidCredentials):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "registration failed")
		}
		return
	}
	response.Success(c, result)
}

func (h *Handler) Login(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.services.Auth.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, appErr.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "login failed")
		return
	}
	response.Success(c, result)
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)
	profile, err := h.services.User.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, appErr.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load profile")
		return
	}
	response.Success(c, profile)
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.services.Ledger.ListActiveRooms(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	response.Success(c, gin.H{"rooms": rooms})
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var body createRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	userID := c.GetInt64(middleware.ContextUserIDKey)
	details, err := h.services.Ledger.CreateRoom(c.Request.Context(), ledger.CreateRoomParams{
		HostUserID: userID,
		Name:       strings.TrimSpace(body.Name),
		MaxPlayers: body.MaxPlayers,
		SmallBlind: body.SmallBlind,
		BigBlind:   body.BigBlind,
		BuyIn:      body.BuyIn,
	})
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	response.Success(c, details)
}

func (h *Handler) JoinRoom(c *gin.Context) {
	var body joinRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	userID := c.GetInt64(middleware.ContextUserIDKey)
	code := strings.ToUpper(strings.TrimSpace(body.RoomCode))
	details, err := h.services.Ledger.JoinRoom(c.Request.Context(), code, userID, body.BuyIn)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	response.Success(c, details)
}

func (h *Handler) GetRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || roomID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid room id")
		return
	}
	details, err := h.services.Ledger.GetRoomDetails(c.Request.Context(), roomID)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	response.Success(c, details)
}

func (h *Handler) GetRoomByCode(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	details, err := h.services.Ledger.GetRoomByCode(c.Request.Context(), code)
	if err != nil {
		writeLedgerError(c, err)
		return
	}
	response.Success(c, details)
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || roomID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid room id")
		return
	}
	userID := c.GetInt64(middleware.ContextUserIDKey)
	if err := h.services.Coordinator.Leave(c.Request.Context(), roomID, userID, ""); err != nil {
		writeLedgerError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{}, "left room")
}

func writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrRoomNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrRoomFull),
		errors.Is(err, appErr.ErrInvalidBlinds),
		errors.Is(err, appErr.ErrBuyInOutOfRange):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, appErr.ErrInsufficientChips):
		response.Error(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, appErr.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "operation failed")
	}
}
