package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expenses-server/internal/accesscontrol"
	"github.com/rongwang/expenses-server/internal/api"
	"github.com/rongwang/expenses-server/internal/config"
	"github.com/rongwang/expenses-server/internal/ledger"
	"github.com/rongwang/expenses-server/internal/notify"
	"github.com/rongwang/expenses-server/internal/repository"
	"github.com/rongwang/expenses-server/internal/service"
	"github.com/rongwang/expenses-server/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	logger := utils.NewLogger()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Access control over the credential and token stores
	ac := accesscontrol.NewAccessControl(repo, repo, logger, cfg.Store.Timeout)

	// Balance aggregation over the transaction store
	aggregator := ledger.NewAggregator(repo)

	// Push notification fan-out
	sender := notify.NewHTTPSender(cfg.Push.Endpoint, cfg.Push.APIKey)
	notifier := notify.NewNotifier(repo, sender, logger, 30*time.Second)

	// Create service
	svc := service.NewDefaultService(repo, aggregator, notifier, logger)

	// Create API handler
	handler := api.NewHandler(svc, ac, logger)

	// Set up Gin router
	router := gin.Default()

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
