package handler

import (
	"log"
	"net/http"

	"builders.to/backend/internal/service"
	"builders.to/backend/pkg/apperror"
	"builders.to/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// StreamHandler exposes the per-channel event stream over websocket.
// Events are fanned out through redis pub/sub so any server instance
// can serve any subscriber.
type StreamHandler struct {
	channelService service.ChannelService
	redisClient    *redis.Client
	upgrader       websocket.Upgrader
}

func NewStreamHandler(channelService service.ChannelService, redisClient *redis.Client) *StreamHandler {
	return &StreamHandler{
		channelService: channelService,
		redisClient:    redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

// HandleChannelStream upgrades the connection and forwards every event
// published for the channel. Only members may subscribe.
func (h *StreamHandler) HandleChannelStream(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	if _, err := h.channelService.GetMember(c.Request.Context(), channelID, userID); err != nil {
		response.ResponseError(c, apperror.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	if h.redisClient == nil {
		log.Println("redis client is nil, cannot subscribe")
		return
	}

	pubsub := h.redisClient.Subscribe(c.Request.Context(), service.ChatEventChannel(channelID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(c.Request.Context()); err != nil {
		log.Printf("failed to subscribe to redis channel: %v", err)
		return
	}

	forwardPubSub(c, conn, pubsub)
}
