package transport

import (
	"context"
	"errors"
	"livepaint/crypto"
	"livepaint/domain"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

var (
	ErrMissingTokenStr         = "missing-token"
	ErrExpiredTokenStr         = "expired-token"
	ErrInvalidTokenStr         = "invalid-token"
	ErrRoomMismatchStr         = "room-mismatch"
	ErrInvalidIdentityStr      = "invalid-identity"
	ErrInvalidRoomStr          = "invalid-room"
	ErrReservedIdentityStr     = "reserved-identity"
	ErrInvalidRequestFormatStr = "bad-request-format"
	ErrInvalidAdminSecretStr   = "invalid-admin-secret"
	ErrRoomNotFoundStr         = "room-not-found"
	ErrParticipantNotFoundStr  = "participant-not-found"
	ErrServerTimeoutStr        = "server-timeout"
	ErrUnknownStr              = "unknown-error"
)

var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

type TokenManager interface {
	Generate(grant crypto.Grant, now time.Time) (string, error)
	Verify(token string) (crypto.Grant, error)
}

type AdminAuthorizer interface {
	Authorize(secret string) error
}

type RoomJoiner interface {
	Join(ctx context.Context, room, identity string, socket Connection) error
	AgentIdentity() string
}

type RoomAdmin interface {
	UpdateRoomMetadata(ctx context.Context, room, metadata string) error
	RemoveParticipant(ctx context.Context, room, identity string) error
}

type Handler struct {
	tokens   TokenManager
	admin    AdminAuthorizer
	rooms    RoomJoiner
	service  RoomAdmin
	upgrader websocket.Upgrader
}

func NewHandler(tokens TokenManager, admin AdminAuthorizer, rooms RoomJoiner, service RoomAdmin) *Handler {
	return &Handler{
		tokens:  tokens,
		admin:   admin,
		rooms:   rooms,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origins are filtered by the server middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/token", h.TokenHandler)
	r.GET("/rooms/:room/connect", h.ConnectHandler)

	admin := r.Group("/rooms/:room", h.RequireAdminMiddleware())
	admin.PUT("/metadata", h.UpdateMetadataHandler)
	admin.DELETE("/participants/:identity", h.RemoveParticipantHandler)
}

func (h *Handler) TokenHandler(ctx *gin.Context) {
	room := ctx.Query("room")
	identity := ctx.Query("identity")

	if !nameRegex.MatchString(room) {
		ctx.String(http.StatusBadRequest, ErrInvalidRoomStr)
		ctx.Abort()
		return
	}
	if !nameRegex.MatchString(identity) {
		ctx.String(http.StatusBadRequest, ErrInvalidIdentityStr)
		ctx.Abort()
		return
	}
	if identity == h.rooms.AgentIdentity() {
		ctx.String(http.StatusForbidden, ErrReservedIdentityStr)
		ctx.Abort()
		return
	}

	token, err := h.tokens.Generate(crypto.Grant{Identity: identity, Room: room}, time.Now())
	if err != nil {
		log.Error().Err(err).Str("room", room).Str("identity", identity).Msg("token generation failed")
		ctx.String(http.StatusInternalServerError, ErrUnknownStr)
		ctx.Abort()
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) ConnectHandler(ctx *gin.Context) {
	token := ctx.Query("token")
	if token == "" {
		ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
		ctx.Abort()
		return
	}

	grant, err := h.tokens.Verify(token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrExpiredToken):
			ctx.String(http.StatusUnauthorized, ErrExpiredTokenStr)
		case errors.Is(err, domain.ErrInvalidSigningAlg), errors.Is(err, domain.ErrInvalidTokenSignature), errors.Is(err, domain.ErrCorruptedToken):
			ctx.String(http.StatusUnauthorized, ErrInvalidTokenStr)
		default:
			ctx.String(http.StatusInternalServerError, ErrUnknownStr)
		}
		ctx.Abort()
		return
	}

	room := ctx.Param("room")
	if grant.Room != room {
		ctx.String(http.StatusForbidden, ErrRoomMismatchStr)
		ctx.Abort()
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", room).Str("identity", grant.Identity).Msg("websocket upgrade failed")
		return
	}

	socket := NewWebsocketConnection(conn)
	if err := h.rooms.Join(context.WithoutCancel(ctx.Request.Context()), room, grant.Identity, socket); err != nil {
		log.Warn().Err(err).Str("room", room).Str("identity", grant.Identity).Msg("join failed")
	}
}

func (h *Handler) RequireAdminMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		secret, ok := strings.CutPrefix(ctx.GetHeader("Authorization"), "Bearer ")
		if !ok || secret == "" {
			ctx.String(http.StatusUnauthorized, ErrInvalidAdminSecretStr)
			ctx.Abort()
			return
		}

		if err := h.admin.Authorize(secret); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidAdminSecret):
				ctx.String(http.StatusUnauthorized, ErrInvalidAdminSecretStr)
			default:
				log.Error().Err(err).Msg("admin secret check failed")
				ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			}
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

func (h *Handler) UpdateMetadataHandler(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil || !gjson.ValidBytes(body) {
		ctx.String(http.StatusBadRequest, ErrInvalidRequestFormatStr)
		ctx.Abort()
		return
	}

	room := ctx.Param("room")
	if err := h.service.UpdateRoomMetadata(ctx.Request.Context(), room, string(body)); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *Handler) RemoveParticipantHandler(ctx *gin.Context) {
	room := ctx.Param("room")
	identity := ctx.Param("identity")

	if err := h.service.RemoveParticipant(ctx.Request.Context(), room, identity); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func writeServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		ctx.String(http.StatusNotFound, ErrRoomNotFoundStr)
	case errors.Is(err, domain.ErrParticipantNotFound):
		ctx.String(http.StatusNotFound, ErrParticipantNotFoundStr)
	case errors.Is(err, context.DeadlineExceeded):
		ctx.String(http.StatusGatewayTimeout, ErrServerTimeoutStr)
	case errors.Is(err, context.Canceled):
		ctx.Status(499)
	default:
		log.Error().Err(err).Str("room", ctx.Param("room")).Msg("room admin call failed")
		ctx.String(http.StatusInternalServerError, ErrUnknownStr)
	}
	ctx.Abort()
}
