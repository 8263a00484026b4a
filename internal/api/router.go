package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"slices"   // Slice helpers
	"strconv"  // String conversion

	"round_dao/internal/config"     // Configuration
	"round_dao/internal/engine"     // Governance engine
	"round_dao/internal/middleware" // Custom middleware
	"round_dao/internal/utils"      // Cache helpers

	"github.com/gin-contrib/cors"        // CORS middleware
	"github.com/gin-gonic/gin"           // Gin web framework
	"github.com/microcosm-cc/bluemonday" // HTML sanitizer
	"github.com/redis/go-redis/v9"       // Redis client
	"github.com/sirupsen/logrus"         // Logging library
)

// Cache key prefixes of the user listings
const (
	topUsersCachePrefix   = "users:top:"
	adminUsersCachePrefix = "admin:users:"
)

// Deps are the collaborators the handlers need
type Deps struct {
	Engine *engine.Engine // Governance engine
	Redis  *redis.Client  // Read cache, nil disables caching
	Config *config.Config // Application configuration
}

// NewRouter wires every route onto a fresh gin engine
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestIDMiddleware())

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Add CORS middleware for the web frontend
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
	}
	if len(cfg.CORSOrigins) == 0 || slices.Contains(cfg.CORSOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	r.Use(cors.New(corsConfig))

	sanitizer := bluemonday.StrictPolicy() // Proposal text is plain text only
	eng, rdb := d.Engine, d.Redis
	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)

	r.GET("/healthz", HealthHandler(eng))
	r.POST("/session", SessionHandler(cfg.AdminIdentity, cfg.AdminKeyHash, cfg.JWTSecret, cfg.SessionTTL))

	// Proposal routes, listing is open to anonymous viewers
	proposals := r.Group("/proposals")
	proposals.GET("", middleware.OptionalJWTMiddleware(cfg.JWTSecret), ListProposalInfosHandler(eng))
	proposals.GET("/raw", ListProposalsHandler(eng))
	proposals.POST("", auth, CreateProposalHandler(eng, sanitizer, cfg.ProposalImageURLPrefix))
	proposals.DELETE("/:id", auth, DeleteProposalHandler(eng))
	proposals.POST("/:id/vote", auth, VoteHandler(eng, rdb))
	proposals.POST("/:id/report", auth, ReportProposalHandler(eng))

	r.GET("/users/top", TopUsersHandler(eng, rdb, cfg.TopUsersCacheTTL))

	// Routes acting on the caller's own account
	me := r.Group("/me")
	me.Use(auth)
	me.GET("", MeHandler(eng))
	me.PUT("/username", SetUserNameHandler(eng, rdb))
	me.PUT("/deposit-address", SetDepositAddressHandler(eng))
	me.POST("/identity/stage", StageIdentityHandler(eng))
	me.POST("/identity/confirm", ConfirmIdentityHandler(eng, rdb))
	me.POST("/claim", ClaimRewardHandler(eng, rdb))

	rounds := r.Group("/rounds")
	rounds.GET("/end-time", RoundEndTimeHandler(eng))
	rounds.GET("/unpublished", NextUnpublishedHandler(eng))
	r.GET("/treasury/account", TreasuryAccountHandler(cfg.TreasuryIdentity))

	// Admin routes (protected, admin only)
	admin := r.Group("/admin")
	admin.Use(auth, middleware.AdminOnlyMiddleware(cfg.AdminIdentity))
	admin.POST("/users", CreateUserHandler(eng, rdb))
	admin.POST("/users/:id/verify", VerifyUserHandler(eng, rdb))
	admin.GET("/users", ListUsersHandler(eng, rdb, cfg.AdminUsersCacheTTL))
	admin.GET("/users/range", UserRangeHandler(eng))
	admin.GET("/users/changed", ChangedUsersHandler(eng))
	admin.PUT("/settings", UpdateSettingsHandler(eng))
	admin.PUT("/backup-watermark", BackupWatermarkHandler(eng))
	admin.POST("/rounds/:index/publish", PublishRoundHandler(eng))
	admin.POST("/payments/:user_id/resolve", ResolvePaymentHandler(eng, rdb))

	return r
}

// InvalidateUserCaches drops every cached user listing; called whenever karma,
// names or membership change
func InvalidateUserCaches(ctx context.Context, rdb *redis.Client) {
	for _, prefix := range []string{topUsersCachePrefix, adminUsersCachePrefix} {
		if err := utils.DeleteCachePrefix(ctx, rdb, prefix); err != nil {
			logrus.WithFields(logrus.Fields{
				"prefix": prefix,      // Cache prefix
				"error":  err.Error(), // Error message
			}).Warn("Cache invalidation failed")
		}
	}
}

// HealthHandler reports liveness and the size of the state
func HealthHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "state": eng.Summary()})
	}
}

// callerIdentity returns the authenticated identity or responds 401
func callerIdentity(c *gin.Context) (string, bool) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
	}
	return identity, ok
}

// uint32Param parses a numeric path parameter or responds 400
func uint32Param(c *gin.Context, name string) (uint32, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint32(v), true
}
