package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"jobsphere/internal/handlers"
)

type Options struct {
	BasePath    string
	Auth        gin.HandlerFunc // session check for protected endpoints
	AuthLimiter gin.HandlerFunc // nil disables rate limiting
}

func SetupRoutes(
	r *gin.Engine,
	opts Options,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	jobHandler *handlers.JobHandler,
	staticHandler *handlers.StaticHandler,
) *gin.Engine {
	r.GET("/healthz", staticHandler.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// the client prefixes calls with the base path; older links omit it
	mountAPI(r.Group("/api"), opts, authHandler, userHandler, jobHandler)
	if opts.BasePath != "" && opts.BasePath != "/" {
		mountAPI(r.Group(opts.BasePath+"/api"), opts, authHandler, userHandler, jobHandler)
	}

	r.NoRoute(staticHandler.NoRoute)
	return r
}

func mountAPI(
	api *gin.RouterGroup,
	opts Options,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	jobHandler *handlers.JobHandler,
) {
	// ---- public
	public := api.Group("")
	if opts.AuthLimiter != nil {
		public.Use(opts.AuthLimiter)
	}
	{
		public.POST("/signup", authHandler.Signup)
		public.POST("/login", authHandler.Login)
		public.POST("/forgot-password", authHandler.ForgotPassword)
		public.POST("/reset-password", authHandler.ResetPassword)
	}
	api.POST("/logout", authHandler.Logout)
	api.GET("/check-session", authHandler.CheckSession)
	api.GET("/stats", jobHandler.Stats)

	// ---- protected
	protected := api.Group("", opts.Auth)
	{
		protected.POST("/search", jobHandler.Search)
		protected.POST("/profile/update", userHandler.UpdateProfile)
		protected.POST("/settings/update", userHandler.UpdateSettings)
		protected.Match([]string{http.MethodGet, http.MethodPost}, "/recommended-jobs", jobHandler.Recommended)
	}
}
