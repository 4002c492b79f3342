// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/doctorsapp/doctors-api/config"
	"github.com/doctorsapp/doctors-api/endpoint"
	"github.com/doctorsapp/doctors-api/middleware"
	"github.com/doctorsapp/doctors-api/model"
	"github.com/doctorsapp/doctors-api/util"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Specialty{},
		&model.Appointment{},
		&model.Session{},
		&model.SecurityLog{},
	); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}
	if err := model.SeedSpecialties(db); err != nil {
		log.Fatalf("Error seeding specialties: %v", err)
	}

	// Redis is optional; session lookups fall back to the database without it.
	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable: %v", err)
	}

	util.SetSecurityLoggerDB(db)
	if geoipPath := os.Getenv("GEOIP_DB"); geoipPath != "" {
		if err := util.InitGeoIP(geoipPath); err != nil {
			log.Printf("GeoIP database not loaded: %v", err)
		}
	}
	util.InitMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
	util.InitRecipientCacheFromEnv()

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())
	router.Use(middleware.MetricsMiddleware())

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	router.GET("/metrics", middleware.MetricsHandler())
	router.Static("/media", cfg.MediaRoot)

	// Public routes
	router.GET("/search", endpoint.SearchDoctors)
	router.POST("/register", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.Register)
	router.POST("/login", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.Login)

	// Session-protected routes
	authed := router.Group("/", middleware.RequireSession())
	{
		authed.GET("/book/slots", endpoint.TimeAvailabilities)
		authed.GET("/book/:doctor_id", endpoint.BookingOptions)
		authed.POST("/book/confirm", endpoint.ConfirmBooking)
		authed.GET("/appointments", endpoint.ListAppointments)
		authed.POST("/appointments/cancel", endpoint.CancelAppointment)
		authed.GET("/users/:id", endpoint.GetUserInfo)
		authed.PATCH("/users/:id", endpoint.UpdateUser)
		authed.POST("/users/upload", endpoint.UploadPicture)
		authed.DELETE("/logout", endpoint.Logout)
		authed.GET("/token/validate", endpoint.ValidateToken)
	}

	// Administrative routes guarded by the api-token header
	admin := router.Group("/", middleware.RequireAPIToken())
	{
		admin.DELETE("/users/:id", endpoint.AdminDeleteUser)
		admin.GET("/specialty", endpoint.ListSpecialties)
		admin.POST("/specialty", endpoint.CreateSpecialty)
		admin.DELETE("/specialty/:id", endpoint.DeleteSpecialty)
	}

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
