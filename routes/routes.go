package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pos-backoffice/controllers"
	"pos-backoffice/middleware"
	"pos-backoffice/models"
)

var defaultOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173"}

// Setup configures and returns the gin engine.
func Setup(ctrl *controllers.Controller, env string, origins []string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.SecurityHeaders())

	if len(origins) == 0 {
		origins = defaultOrigins
	}
	config := cors.DefaultConfig()
	config.AllowOrigins = origins
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	config.ExposeHeaders = []string{middleware.RequestIDHeader}
	config.AllowCredentials = true
	r.Use(cors.New(config))

	protect := middleware.RequireAuth(ctrl.Auth)
	superAdmin := middleware.RequireRole(models.RoleSuperAdmin)

	api := r.Group("/api")
	{
		api.GET("/health", ctrl.HealthCheck)

		auth := api.Group("/auth")
		auth.POST("/register", ctrl.Register)
		auth.GET("/verify-email", ctrl.VerifyEmail)
		auth.POST("/login", ctrl.Login)
		auth.POST("/logout", ctrl.Logout)
		auth.POST("/forgot-password", ctrl.ForgotPassword)
		auth.PUT("/reset-password", ctrl.ResetPassword)
		auth.GET("/profile", protect, ctrl.GetProfile)
		auth.PUT("/profile", protect, ctrl.UpdateProfile)
		auth.PUT("/change-password", protect, ctrl.ChangePassword)
		auth.GET("/users", protect, superAdmin, ctrl.GetAdmins)
		auth.DELETE("/users/:id", protect, superAdmin, ctrl.DeleteAdmin)

		products := api.Group("/products", protect)
		products.GET("", ctrl.GetProducts)
		products.POST("", ctrl.CreateProduct)
		products.GET("/:id", ctrl.GetProduct)
		products.PUT("/:id", ctrl.UpdateProduct)
		products.DELETE("/:id", ctrl.DeleteProduct)

		orders := api.Group("/orders", protect)
		orders.GET("", ctrl.GetOrders)
		orders.POST("", ctrl.CreateOrder)
		orders.GET("/:id", ctrl.GetOrder)
		orders.PUT("/status/:id", ctrl.UpdateOrderStatus)
		orders.PUT("/:id", ctrl.UpdateOrder)
		orders.DELETE("/:id", ctrl.DeleteOrder)

		api.GET("/summary", protect, ctrl.GetSummary)
	}

	r.NoRoute(controllers.NotFound)
	return r
}
