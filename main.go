package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	paymentControllers "github.com/Tarunnagpal7/Mom-Kitchen-Backend/controllers/payment"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/routes"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/payments"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/sms"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/tracking"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/utils"
)

func main() {
	logrus.Info("✅ Starting Mom's Kitchen backend...")

	// Load environment variables
	_ = godotenv.Load()

	// Init DB
	db := initDatabase()

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.User{},
		&models.Address{},
		&models.Menu{},
		&models.MenuItem{},
		&models.Order{},
		&models.Payment{},
		&models.Delivery{},
	); err != nil {
		logrus.Fatalf("❌ AutoMigrate failed: %v", err)
	}

	// Best-effort cache
	utils.InitRedis()

	// External services
	gateway, err := payments.NewStripeGateway()
	if err != nil {
		logrus.Fatalf("❌ Payment gateway init failed: %v", err)
	}
	tracker, err := tracking.NewClient()
	if err != nil {
		logrus.Fatalf("❌ Tracking client init failed: %v", err)
	}
	notifier, err := sms.NewTwilioNotifier()
	if err != nil {
		logrus.Fatalf("❌ SMS notifier init failed: %v", err)
	}

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup routes
	routes.SetupRoutes(r, db, routes.Dependencies{
		Gateway:  gateway,
		Webhooks: gateway,
		Tracker:  tracker,
		Notifier: notifier,
	})

	// Reclaim capacity from orders whose payment never completed
	go startOrderExpirySweep(db)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logrus.Infof("🚀 Server running on port %s...", port)
	if err := r.Run(":" + port); err != nil {
		logrus.Fatalf("❌ Failed to start server: %v", err)
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase() *gorm.DB {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
		if err != nil {
			logrus.Fatalf("❌ DB connection failed: %v", err)
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("❌ Failed to connect DB: %v", err)
	}
	return db
}

// startOrderExpirySweep periodically cancels payment-pending orders older
// than ORDER_EXPIRY_MINUTES and returns their reserved capacity to the menu.
func startOrderExpirySweep(db *gorm.DB) {
	expiryMinutes, _ := strconv.Atoi(os.Getenv("ORDER_EXPIRY_MINUTES"))
	if expiryMinutes <= 0 {
		expiryMinutes = 60
	}
	expiry := time.Duration(expiryMinutes) * time.Minute
	interval := expiry / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	for {
		time.Sleep(interval)

		expired, err := paymentControllers.ExpireStaleOrders(db, expiry)
		if err != nil {
			logrus.WithError(err).Error("order expiry sweep failed")
			continue
		}
		if expired > 0 {
			logrus.Infof("🗑️ Expired %d unpaid orders, capacity restored", expired)
		}
	}
}
