package routes

import (
	"vaccine-tracker-server/internal/config"
	"vaccine-tracker-server/internal/handlers"
	"vaccine-tracker-server/internal/middleware"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/scheduling"
	"vaccine-tracker-server/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, st store.Store, scheduler *scheduling.Service, cfg *config.Config) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	childHandler := handlers.NewChildHandler(st)
	doctorHandler := handlers.NewDoctorHandler(st)
	vaccineHandler := handlers.NewVaccineHandler(st)
	appointmentHandler := handlers.NewAppointmentHandler(st, scheduler)
	scheduleHandler := handlers.NewScheduleHandler(st)
	recordHandler := handlers.NewRecordHandler(st)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Child profiles, owned by the authenticated parent
		childRoutes := private.Group("/children")
		{
			childRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleParent), childHandler.CreateChild)
			childRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleParent), childHandler.GetChildren)
			childRoutes.GET("/:id", childHandler.GetChildByID)   // Ownership inside handler
			childRoutes.PUT("/:id", childHandler.UpdateChild)    // Ownership inside handler
			childRoutes.DELETE("/:id", childHandler.DeleteChild) // Ownership inside handler

			// Per-child vaccination views
			childRoutes.GET("/:id/schedule", scheduleHandler.GetSchedulesForChild)
			childRoutes.GET("/:id/records", recordHandler.GetRecordsForChild)
		}

		// Doctor roster, read-only
		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("", doctorHandler.GetDoctors)
			doctorRoutes.GET("/:id", doctorHandler.GetDoctorByID)
		}

		// Vaccine catalogue
		vaccineRoutes := private.Group("/vaccines")
		{
			vaccineRoutes.GET("", vaccineHandler.GetVaccines)
			vaccineRoutes.GET("/:id", vaccineHandler.GetVaccineByID)

			adminRoutes := vaccineRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", vaccineHandler.CreateVaccine)
				adminRoutes.PUT("/:id", vaccineHandler.UpdateVaccine)
				adminRoutes.DELETE("/:id", vaccineHandler.DeleteVaccine)
			}
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleParent, models.RoleAdmin), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser) // Logic inside handler differentiates by role
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID) // Authorization inside handler
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus) // Authorization inside the state machine
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment) // Authorization inside the state machine
		}

		// Vaccination schedule maintenance
		scheduleRoutes := private.Group("/schedules")
		{
			scheduleRoutes.PATCH("/:id/reschedule", scheduleHandler.RescheduleEntry) // Ownership inside handler
			scheduleRoutes.PUT("/bulk", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), scheduleHandler.BulkUpdateSchedules)
		}

		// Vaccination record corrections
		recordRoutes := private.Group("/records")
		{
			recordRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), recordHandler.UpdateRecord)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
