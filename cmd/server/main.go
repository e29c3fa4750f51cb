package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/config"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/infrastructure"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/interfaces"
	httpiface "github.com/Phonsadboy/ChatCenterAI-sub001/internal/interfaces/http"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/interfaces/ws"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/repository"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/usecases"
)

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		panic("JWT_SECRET must be set")
	}

	// Connect to PostgreSQL (migrates on start)
	pgClient, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}
	defer pgClient.Close()

	// Initialize Repositories
	conversationRepo := repository.NewConversationRepository(pgClient.Pool)
	instructionRepo := repository.NewInstructionRepository(pgClient.Pool)
	credentialRepo := repository.NewCredentialRepository(pgClient.Pool)
	userRepo := repository.NewUserRepository(pgClient.Pool)
	usageRepo := repository.NewUsageRepository(pgClient.Pool)

	// Env-derived credentials seed the table the first time; after that the
	// rows in platform_credentials are authoritative.
	seedCredentials(credentialRepo, cfg)

	authUsecase := usecases.NewAuthUsecase(userRepo, cfg.JWTSecret)
	if err := authUsecase.EnsureAdmin("root", "root"); err != nil {
		fmt.Println("Warning: Failed to ensure admin user:", err)
	}

	// Outbound senders, keyed by platform. Web has no outbound channel; its
	// replies only travel over the websocket.
	senders := buildSenders(credentialRepo, cfg)

	var completions interfaces.CompletionClient
	if cfg.OpenAIKey != "" {
		completions = infrastructure.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.MaxTokens)
	} else {
		fmt.Println("Warning: OPENAI_API_KEY not set, automated replies disabled")
	}
	responder := usecases.NewResponder(completions, instructionRepo, cfg.ReplyMaxLen)

	hub := ws.NewHub()
	historyCache := infrastructure.NewHistoryCache(50, 30*time.Minute)
	defer historyCache.Close()
	replyLimiter := infrastructure.NewReplyLimiter(0.5, 3)
	defer replyLimiter.Close()

	messageService := usecases.NewMessageService(
		conversationRepo, responder, senders, hub, usageRepo, historyCache, replyLimiter)

	if cfg.TelemetryEnabled && cfg.TelemetryToken != "" {
		reporter, err := infrastructure.NewTelemetryReporter(cfg.TelemetryToken, cfg.TelemetryChatID, usageRepo, time.Hour)
		if err != nil {
			fmt.Println("Warning: telemetry reporter disabled:", err)
		} else {
			reporter.Start()
			defer reporter.Stop()
		}
	}

	handler := httpiface.NewHandler(messageService, conversationRepo, instructionRepo, credentialRepo, userRepo, usageRepo)
	authMiddleware := httpiface.NewMiddleware(cfg.JWTSecret)

	r := gin.Default()
	httpiface.SetupRoutes(r, handler, authUsecase, hub, authMiddleware)

	log.Printf("[Server] listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		panic("Server failed: " + err.Error())
	}
}

func seedCredentials(repo *repository.CredentialRepository, cfg config.Config) {
	ctx := context.Background()
	defaults := []entities.Credential{
		{Platform: entities.PlatformFacebook, Label: "env default", AccessToken: cfg.FacebookAccessToken,
			ChannelSecret: cfg.FacebookAppSecret, VerifyToken: cfg.FacebookVerifyToken, Active: true},
		{Platform: entities.PlatformInstagram, Label: "env default", AccessToken: cfg.InstagramAccessToken,
			ChannelSecret: cfg.InstagramAppSecret, VerifyToken: cfg.InstagramVerifyToken, Active: true},
		{Platform: entities.PlatformLine, Label: "env default", AccessToken: cfg.LineAccessToken,
			ChannelSecret: cfg.LineChannelSecret, Active: true},
		{Platform: entities.PlatformTelegram, Label: "env default", AccessToken: cfg.TelegramBotToken,
			ChannelSecret: cfg.TelegramSecretToken, Active: true},
	}
	for i := range defaults {
		if defaults[i].AccessToken == "" {
			continue
		}
		if err := repo.SeedDefault(ctx, &defaults[i]); err != nil {
			fmt.Printf("Warning: Failed to seed %s credential: %v\n", defaults[i].Platform, err)
		}
	}
}

func buildSenders(repo *repository.CredentialRepository, cfg config.Config) map[string]interfaces.Sender {
	ctx := context.Background()
	senders := make(map[string]interfaces.Sender)

	token := func(platform, envDefault string) string {
		if cred, err := repo.ActiveForPlatform(ctx, platform); err == nil && cred != nil && cred.AccessToken != "" {
			return cred.AccessToken
		}
		return envDefault
	}

	if t := token(entities.PlatformFacebook, cfg.FacebookAccessToken); t != "" {
		senders[entities.PlatformFacebook] = infrastructure.NewGraphSender(t)
	}
	if t := token(entities.PlatformInstagram, cfg.InstagramAccessToken); t != "" {
		senders[entities.PlatformInstagram] = infrastructure.NewGraphSender(t)
	}
	if t := token(entities.PlatformLine, cfg.LineAccessToken); t != "" {
		senders[entities.PlatformLine] = infrastructure.NewLineSender(t)
	}
	if t := token(entities.PlatformTelegram, cfg.TelegramBotToken); t != "" {
		sender, err := infrastructure.NewTelegramSender(t)
		if err != nil {
			fmt.Println("Warning: telegram sender disabled:", err)
		} else {
			senders[entities.PlatformTelegram] = sender
		}
	}
	return senders
}
