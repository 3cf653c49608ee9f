package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/realprep/exam-service/internal/services"
)

// HandlerManager wires every HTTP handler to the service layer
type HandlerManager struct {
	attemptHandler  *AttemptHandler
	questionHandler *QuestionHandler
	authHandler     *AuthHandler
	authService     services.AuthService
}

func NewHandlerManager(serviceManager services.ServiceManager, logger *slog.Logger) *HandlerManager {
	return &HandlerManager{
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), logger),
		questionHandler: NewQuestionHandler(serviceManager.Question(), serviceManager.Import(), logger),
		authHandler:     NewAuthHandler(serviceManager.Auth(), logger),
		authService:     serviceManager.Auth(),
	}
}

// SetupRoutes registers all API routes on the router
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "exam-service"})
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/signup", hm.authHandler.Signup)
		auth.POST("/login", hm.authHandler.Login)
	}

	authed := v1.Group("")
	authed.Use(AuthMiddleware(hm.authService))
	{
		attempts := authed.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/questions/:position", hm.attemptHandler.GetAttemptQuestion)
			attempts.POST("/:id/answer", hm.attemptHandler.RecordAnswer)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/result", hm.attemptHandler.GetResult)
			attempts.GET("/:id/review", hm.attemptHandler.ReviewAttempt)
		}

		authed.GET("/me/attempts", hm.attemptHandler.ListMyAttempts)

		questions := authed.Group("/questions")
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/topics", hm.questionHandler.ListTopics)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.POST("/import", hm.questionHandler.ImportQuestions)
			questions.GET("/import/:job_id", hm.questionHandler.GetImportJob)
		}
	}
}
