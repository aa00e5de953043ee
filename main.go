package main

import (
	"context"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/messaging"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/routes"
	"github.com/cppla/blogicum/storage"
	"github.com/cppla/blogicum/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(models.All()...)

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Fatalf("failed to initialise %s storage: %v", cfg.StorageDriver, err)
	}

	events, err := messaging.New(cfg)
	if err != nil {
		utils.Sugar.Fatalf("failed to connect to NATS: %v", err)
	}
	defer events.Close()

	r := routes.SetupRouter(db, store, events)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
