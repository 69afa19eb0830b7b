// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ariebrainware/telemed-api/config"
	"github.com/ariebrainware/telemed-api/endpoint"
	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal("JWTSECRET must be set")
	}

	util.InitSentry(cfg.SentryDSN, cfg.AppEnv)

	db, err := config.ConnectDatabase()
	if err != nil {
		util.Fatalf("Error connecting to database: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		util.Fatalf("Error migrating database: %v", err)
	}
	if err := model.SeedBmdcRegistry(db); err != nil {
		util.Fatalf("Error seeding BMDC registry: %v", err)
	}

	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, rate limits are kept in process: %v", err)
	}

	initGeoIP(cfg)
	defer util.CloseGeoIP()

	util.InitIdentityEmailCache(cfg.IdentityCacheSize)
	util.SetSecurityLoggerDB(db)

	mailer := util.NewMailer(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName, cfg.AppEnv)
	google := service.IDTokenVerifier{ClientID: cfg.GoogleClientID}
	handler := endpoint.NewHandler(cfg, mailer, google)

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)
	router := endpoint.SetupRouter(db, handler)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		util.CloseGeoIP()
		util.Fatalf("error starting server: %v", err)
	}
}

// initGeoIP downloads the GeoIP database when a URL is configured, then
// opens it. Lookups are disabled when either step fails.
func initGeoIP(cfg *config.Config) {
	if cfg.GeoIPDBPath == "" {
		return
	}
	if cfg.GeoIPDBURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		path, err := util.DownloadGeoIPWithRequest(ctx, util.DownloadRequest{URL: cfg.GeoIPDBURL, DestPath: cfg.GeoIPDBPath})
		if err != nil {
			log.Printf("GeoIP download failed: %v", err)
		} else if err := util.ValidateGeoIP(path); err != nil {
			log.Printf("Downloaded GeoIP database is invalid: %v", err)
		}
	}
	if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
		log.Printf("GeoIP lookups disabled: %v", err)
	}
}
