package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/interfaces/ws"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/repository"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/usecases"
)

// Handler stores, satisfied by the repository layer. Lookups return
// (nil, nil) when the entity is absent; Update/Delete report a missing row
// with pgx.ErrNoRows.

type ConversationDirectory interface {
	List(ctx context.Context, f repository.ConversationFilter) ([]entities.Conversation, error)
	GetByID(ctx context.Context, id int) (*entities.Conversation, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	CountByPlatform(ctx context.Context) (map[string]int, error)
}

type InstructionStore interface {
	Create(ctx context.Context, ins *entities.Instruction) error
	GetByID(ctx context.Context, id int) (*entities.Instruction, error)
	List(ctx context.Context, platform, category string) ([]entities.Instruction, error)
	Update(ctx context.Context, ins *entities.Instruction) error
	Delete(ctx context.Context, id int) error
}

type CredentialStore interface {
	Create(ctx context.Context, c *entities.Credential) error
	GetByID(ctx context.Context, id int) (*entities.Credential, error)
	List(ctx context.Context) ([]entities.Credential, error)
	ActiveForPlatform(ctx context.Context, platform string) (*entities.Credential, error)
	Update(ctx context.Context, c *entities.Credential) error
	Delete(ctx context.Context, id int) error
}

type UserDirectory interface {
	GetByID(id int) (*entities.User, error)
	GetAll() ([]entities.User, error)
	SetActive(id int, active bool) error
}

type UsageSource interface {
	Today() (received, aiReplies, agentReplies int, err error)
	TodayByPlatform() ([]repository.DailyUsage, error)
}

type Handler struct {
	messageService *usecases.MessageService
	conversations  ConversationDirectory
	instructions   InstructionStore
	credentials    CredentialStore
	userRepo       UserDirectory
	usageRepo      UsageSource
}

func NewHandler(service *usecases.MessageService, conversations ConversationDirectory,
	instructions InstructionStore, credentials CredentialStore,
	userRepo UserDirectory, usageRepo UsageSource) *Handler {
	return &Handler{
		messageService: service,
		conversations:  conversations,
		instructions:   instructions,
		credentials:    credentials,
		userRepo:       userRepo,
		usageRepo:      usageRepo,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, auth *usecases.AuthUsecase, hub *ws.Hub, middleware *Middleware) {
	// Apply Security Middleware
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	// Webhook Routes (public; each verifies its own handshake/signature)
	r.GET("/webhook/facebook", h.VerifyGraphWebhook("facebook"))
	r.POST("/webhook/facebook", h.HandleFacebookWebhook)
	r.GET("/webhook/instagram", h.VerifyGraphWebhook("instagram"))
	r.POST("/webhook/instagram", h.HandleInstagramWebhook)
	r.POST("/webhook/line", h.HandleLineWebhook)
	r.POST("/webhook/telegram", h.HandleTelegramWebhook)
	r.POST("/webhook/web", h.HandleWebMessage)

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				respondError(c, http.StatusBadRequest, "Invalid request")
				return
			}
			token, err := auth.Login(loginReq.Username, loginReq.Password)
			if err != nil {
				respondError(c, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			respondOK(c, http.StatusOK, gin.H{"token": token})
		})

		authGroup.POST("/register", func(c *gin.Context) {
			var regReq struct {
				Username    string `json:"username"`
				DisplayName string `json:"display_name"`
				Password    string `json:"password"`
			}
			if err := c.ShouldBindJSON(&regReq); err != nil {
				respondError(c, http.StatusBadRequest, "Invalid request")
				return
			}
			if !ValidateLength(regReq.Username, 3, 50) || len(regReq.Password) < 6 {
				respondError(c, http.StatusBadRequest, "Invalid username or password (min 6 chars)")
				return
			}
			if err := auth.Register(regReq.Username, SanitizeString(regReq.DisplayName), regReq.Password); err != nil {
				respondError(c, http.StatusConflict, err.Error())
				return
			}
			respondOK(c, http.StatusCreated, gin.H{"status": "registered"})
		})
	}

	// Realtime channel (JWT via ?token=)
	wsGroup := r.Group("/ws")
	wsGroup.Use(middleware.AuthRequired())
	wsGroup.GET("", hub.HandleConnection)

	// Protected Dashboard Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/dashboard/stats", h.GetDashboardStats)

		// Conversation Routes
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id", h.GetConversation)
		api.PUT("/conversations/:id/status", h.UpdateConversationStatus)
		api.PUT("/conversations/:id/assign", h.AssignConversation)
		api.POST("/conversations/:id/messages", h.PostAgentReply)

		// Instruction Routes
		api.GET("/instructions", h.ListInstructions)
		api.GET("/instructions/:id", h.GetInstruction)
		api.POST("/instructions", h.CreateInstruction)
		api.PUT("/instructions/:id", h.UpdateInstruction)
		api.DELETE("/instructions/:id", h.DeleteInstruction)
	}

	// Admin-only Routes
	credentials := r.Group("/api/credentials")
	credentials.Use(middleware.AuthRequired())
	credentials.Use(middleware.AdminRequired())
	{
		credentials.GET("", h.ListCredentials)
		credentials.GET("/:id", h.GetCredential)
		credentials.POST("", h.CreateCredential)
		credentials.PUT("/:id", h.UpdateCredential)
		credentials.DELETE("/:id", h.DeleteCredential)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/users", h.GetAllUsers)
		admin.PUT("/users/:id/status", h.UpdateUserStatus)
	}
}
