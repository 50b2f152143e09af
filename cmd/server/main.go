package main

import (
	"log"
	"strings"
	"time"

	"builders.to/backend/internal/bootstrap"
	"builders.to/backend/internal/config"
	"builders.to/backend/internal/handler"
	"builders.to/backend/internal/middleware"
	"builders.to/backend/internal/repository"
	"builders.to/backend/internal/service"
	"builders.to/backend/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedChannels(db); err != nil {
		log.Fatalf("failed to seed channels: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	redisClient := connectRedis(cfg.RedisURL)

	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	karmaRepo := repository.NewKarmaRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	moderationRepo := repository.NewModerationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient)
	publisher := service.NewChatEventPublisher(redisClient)

	ledgerService := service.NewLedgerService(ledgerRepo, userRepo, notificationService)
	referralService := service.NewReferralService(userRepo, ledgerService)
	karmaService := service.NewKarmaService(karmaRepo, userRepo, ledgerService)
	channelService := service.NewChannelService(channelRepo, messageRepo, userRepo, notificationService, publisher)
	messageService := service.NewMessageService(messageRepo, channelRepo, publisher, redisClient, cfg.RateLimitMessage)
	moderationService := service.NewModerationService(moderationRepo, channelRepo, messageRepo, notificationService)

	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	karmaHandler := handler.NewKarmaHandler(karmaService, referralService)
	channelHandler := handler.NewChannelHandler(channelService)
	messageHandler := handler.NewMessageHandler(messageService)
	moderationHandler := handler.NewModerationHandler(moderationService)
	notificationHandler := handler.NewNotificationHandler(notificationService, redisClient)
	streamHandler := handler.NewStreamHandler(channelService, redisClient)

	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.POST("/ledger/credit", ledgerHandler.Credit)
			admin.GET("/ledger/users/:user_id/balance", ledgerHandler.GetUserBalance)
		}

		ledger := api.Group("/ledger")
		{
			ledger.GET("/balance", ledgerHandler.GetBalance)
			ledger.GET("/history", ledgerHandler.GetHistory)
			ledger.POST("/debit", ledgerHandler.Debit)
		}

		karma := api.Group("/karma")
		{
			karma.GET("/me", karmaHandler.GetMyKarma)
			karma.GET("/leaderboard", karmaHandler.GetLeaderboard)
			karma.POST("/helpful", karmaHandler.MarkHelpful)
		}

		referral := api.Group("/referral")
		{
			referral.GET("/code", karmaHandler.GetReferralCode)
			referral.POST("/apply", karmaHandler.ApplyReferralCode)
		}

		channels := api.Group("/channels")
		{
			channels.POST("", channelHandler.CreateChannel)
			channels.GET("", channelHandler.Discover)
			channels.POST("/dm", channelHandler.CreateDM)
			channels.POST("/:channel_id/join", channelHandler.Join)
			channels.POST("/:channel_id/leave", channelHandler.Leave)
			channels.POST("/:channel_id/archive", channelHandler.Archive)
			channels.POST("/:channel_id/invites", channelHandler.Invite)
			channels.POST("/:channel_id/invites/accept", channelHandler.AcceptInvite)
			channels.POST("/:channel_id/invites/decline", channelHandler.DeclineInvite)
			channels.PUT("/:channel_id/members/role", channelHandler.SetRole)
			channels.POST("/:channel_id/read", channelHandler.MarkRead)
			channels.GET("/:channel_id/unread", channelHandler.UnreadCount)

			channels.POST("/:channel_id/messages", messageHandler.PostMessage)
			channels.GET("/:channel_id/messages", messageHandler.ListMessages)

			channels.POST("/:channel_id/moderation", moderationHandler.PerformAction)
			channels.GET("/:channel_id/moderation", moderationHandler.GetAuditLog)
		}

		messages := api.Group("/messages")
		{
			messages.GET("/search", messageHandler.Search)
			messages.GET("/bookmarks", messageHandler.ListBookmarks)
			messages.GET("/:message_id/thread", messageHandler.GetThread)
			messages.PUT("/:message_id", messageHandler.EditMessage)
			messages.DELETE("/:message_id", messageHandler.DeleteMessage)
			messages.POST("/:message_id/pin", messageHandler.PinMessage)
			messages.DELETE("/:message_id/pin", messageHandler.UnpinMessage)
			messages.POST("/:message_id/reactions", messageHandler.ToggleReaction)
			messages.POST("/:message_id/bookmark", messageHandler.ToggleBookmark)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread", notificationHandler.UnreadCount)
			notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
			notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
		}

		ws := api.Group("/ws")
		{
			ws.GET("/notifications", notificationHandler.HandleWebSocket)
			ws.GET("/channels/:channel_id", streamHandler.HandleChannelStream)
		}
	}

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func connectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL, realtime features disabled: %v", err)
		return nil
	}

	return redis.NewClient(opts)
}
