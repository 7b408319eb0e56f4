package main

import (
	"log"

	"gocausal/internal/config"
	"gocausal/internal/container"
	"gocausal/ui"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	app, err := ui.NewApp(appContainer.Demo, appContainer.Logger)
	if err != nil {
		log.Fatalf("Failed to create UI app: %v", err)
	}
	if err := app.Start(appConfig.Server.UIPort); err != nil {
		log.Fatalf("UI server failed: %v", err)
	}
}
