// Package http exposes the public JSON API over gin.
package http

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/mailer"
	"github.com/citywatch-app/citywatch/internal/media"
	"github.com/citywatch-app/citywatch/internal/payments"
	"github.com/citywatch-app/citywatch/internal/service"
	"github.com/citywatch-app/citywatch/internal/storage"
)

// Options carries the transport tunables the server needs.
type Options struct {
	CORSOrigin    string
	IPRateRPS     float64
	IPRateBurst   int
	WebhookSecret string
	AdminEmail    string
}

// Server binds the application services to HTTP routes.
type Server struct {
	posts         service.PostService
	interactions  service.InteractionService
	identity      service.IdentityService
	subscriptions service.SubscriptionService
	admin         service.AdminService
	pipeline      *media.Pipeline
	payments      *payments.Client
	mail          *mailer.Mailer
	store         storage.ObjectStore
	opts          Options
	logger        *zap.Logger
}

// NewServer constructs the HTTP server.
func NewServer(posts service.PostService, interactions service.InteractionService,
	identity service.IdentityService, subscriptions service.SubscriptionService,
	admin service.AdminService, pipeline *media.Pipeline, pay *payments.Client,
	mail *mailer.Mailer, store storage.ObjectStore, opts Options, logger *zap.Logger) *Server {
	return &Server{
		posts:         posts,
		interactions:  interactions,
		identity:      identity,
		subscriptions: subscriptions,
		admin:         admin,
		pipeline:      pipeline,
		payments:      pay,
		mail:          mail,
		store:         store,
		opts:          opts,
		logger:        logger,
	}
}

// Router assembles the gin engine: middleware, API routes, media
// serving. ctx bounds the background pruning of per-IP rate buckets.
func (s *Server) Router(ctx context.Context) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.logger))
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.opts.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(fingerprintMiddleware())

	rl := newIPRateLimiter(s.opts.IPRateRPS, s.opts.IPRateBurst)
	go rl.run(ctx)

	api := r.Group("/api", rateLimitMiddleware(rl))
	{
		api.GET("/posts", s.handlePostsInBounds)
		api.POST("/posts", s.handleCreatePost)
		api.GET("/posts/recent", s.handleRecentPosts)
		api.GET("/posts/nearby", s.handleNearbyPosts)
		api.GET("/posts/:id", s.handlePostDetail)
		api.POST("/posts/:id/vote", s.handleVote)
		api.POST("/posts/:id/favorite", s.handleAddFavorite)
		api.DELETE("/posts/:id/favorite", s.handleRemoveFavorite)
		api.POST("/posts/:id/report", s.handleReport)
		api.GET("/posts/:id/comments", s.handleListComments)
		api.POST("/posts/:id/comments", s.handleCreateComment)

		api.POST("/media/upload", s.handleMediaUpload)

		api.GET("/me", s.handleMe)
		api.GET("/favorites", s.handleListFavorites)

		api.GET("/subscriptions", s.handleListSubscriptions)
		api.POST("/subscriptions", s.handleSubscribe)
		api.DELETE("/subscriptions", s.handleUnsubscribe)

		api.POST("/contact", s.handleContact)

		api.POST("/donate/create", s.handleDonateCreate)
		api.GET("/donate/status", s.handleDonateStatus)
		api.GET("/donate/coins", s.handleDonateCoins)
		api.POST("/webhooks/payment", s.handlePaymentWebhook)

		api.GET("/auth/me", s.handleAuthMe)
		api.POST("/admin/login", s.handleAdminLogin)
		api.DELETE("/admin/posts/:id", s.adminAuth(), s.handleAdminDeletePost)
	}

	r.GET("/media/*path", s.handleServeMedia)
	return r
}
