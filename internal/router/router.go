// Package router assembles the HTTP routes and middleware chain.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/handlers"
	"github.com/yukikurage/taskdesk-api/internal/logging"
	"github.com/yukikurage/taskdesk-api/internal/middleware"
	"github.com/yukikurage/taskdesk-api/internal/services"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Logger       logrus.FieldLogger
	Issuer       *auth.TokenIssuer
	AuthService  *services.AuthService
	TaskService  *services.TaskService
	UserService  *services.UserService
	CORSOrigin   string
	SecureCookie bool
}

// New builds the gin engine with every API route.
func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(logging.RequestLogger(deps.Logger))
	r.Use(gin.Recovery())
	if deps.CORSOrigin != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{deps.CORSOrigin},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.Issuer, deps.SecureCookie)
	taskHandler := handlers.NewTaskHandler(deps.TaskService)
	userHandler := handlers.NewUserHandler(deps.UserService)

	requireAuth := middleware.Authenticate(deps.Issuer)
	requireAdmin := middleware.RequireAdmin()
	requireTaskAccess := middleware.RequireTaskAccess(deps.TaskService)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Management API is running",
		})
	})

	api := r.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", requireAuth, authHandler.Me)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/stats", taskHandler.Stats)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", requireTaskAccess, taskHandler.GetTask)
			tasks.PUT("/:id", requireTaskAccess, taskHandler.UpdateTask)
			tasks.PATCH("/:id/complete", requireTaskAccess, taskHandler.CompleteTask)
			tasks.DELETE("/:id", requireTaskAccess, taskHandler.DeleteTask)
			tasks.DELETE("/:id/files/:fileId", requireTaskAccess, taskHandler.DeleteFile)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", requireAdmin, userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.POST("", requireAdmin, userHandler.CreateUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", requireAdmin, userHandler.DeleteUser)
		}
	}

	return r
}
