package routes

import (
	"net/http"
	"strings"
	"time"

	"kavyalok/auth"
	"kavyalok/handlers"
	"kavyalok/middleware"
	"kavyalok/realtime"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	CORSOrigins        []string
	RateLimitPerMinute int
}

func SetupRouter(h *handlers.Handler, verifier auth.Verifier, hub *realtime.Hub, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if opts.RateLimitPerMinute > 0 {
		router.Use(middleware.RateLimit(middleware.NewIPRateLimiter(opts.RateLimitPerMinute)))
	}

	router.GET("/api/health", h.Health)

	// Public routes (no auth required)
	public := router.Group("/api")
	public.GET("/posts", h.GetFeed)
	public.GET("/posts/search", h.SearchPosts)
	public.GET("/posts/tag/:tag", h.GetPostsByTag)
	public.GET("/post", h.GetPost)
	public.GET("/post/comments", h.GetComments)
	public.GET("/user", h.GetUser)
	public.GET("/user/posts", h.GetUserPosts)
	public.GET("/competitions", h.ListCompetitions)
	public.POST("/payments/callback", h.PaymentCallback)
	public.GET("/push/vapid-public-key", h.GetVapidPublicKey)
	if h.Accounts != nil {
		public.POST("/auth/signup", h.Signup)
		public.POST("/auth/login", h.Login)
	}

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.Authenticate(verifier))

	// Posts
	protected.POST("/post", h.CreatePost)
	protected.PUT("/post", h.UpdatePost)
	protected.DELETE("/post", h.DeletePost)
	protected.POST("/post/like", h.ToggleLike)
	protected.POST("/post/bookmark", h.ToggleBookmark)
	protected.POST("/post/comment", h.AddComment)
	protected.POST("/post/cover", h.UploadCover)

	// Users
	protected.POST("/user/register", h.RegisterUser)
	protected.PUT("/user", h.UpdateUser)
	protected.GET("/user/bookmarks", h.GetBookmarks)
	protected.GET("/user/interactions", h.GetInteractions)
	protected.POST("/user/follow", h.Follow)
	protected.GET("/user/friends", h.GetFriends)

	// Notifications
	protected.GET("/notifications", h.GetNotifications)
	protected.POST("/notifications/mark-read", h.MarkNotificationsRead)

	// Competitions
	protected.PATCH("/competitions", h.JoinCompetition)
	protected.POST("/payments/initiate", h.InitiatePayment)

	// Push subscriptions
	protected.POST("/push/subscribe", h.SubscribePush)

	if hub != nil {
		router.GET("/ws", gin.WrapF(realtime.Handler(hub, verifier)))
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Status(http.StatusNotFound)
	})

	return router
}
