package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"example.com/geoprep/internal/classifications"
	"example.com/geoprep/internal/handlers"
	"example.com/geoprep/internal/qa"
)

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func main() {
	// .env is optional; environment variables win either way.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	fmrBaseURL := getEnv("FMR_BASE_URL", classifications.DefaultBaseURL)
	serverPort := getEnv("SERVER_PORT", "8080")

	log.Printf("Configuration:")
	log.Printf("  FMR Base URL: %s", fmrBaseURL)
	log.Printf("  Server Port: %s", serverPort)

	// Initialize the FMR client and services
	fmrClient := classifications.NewHTTPFMRClient(fmrBaseURL)
	classificationService := classifications.NewClassificationService(fmrClient)
	qaService := qa.NewQAService(qa.NewGeoPackageWriter())

	// Initialize the API and router
	api := handlers.NewAPI(classificationService, qaService)
	router := gin.Default()
	api.RegisterRoutes(router)

	// Start the server
	listenAddr := fmt.Sprintf(":%s", serverPort)
	log.Printf("Starting geoprep service on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatalf("Failed to start geoprep service: %v", err)
	}
}
