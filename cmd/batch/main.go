package main

import (
	"log"
	"time"

	"zenny/config"
	"zenny/services"
)

func main() {
	dynamoClient := services.NewDynamoDBClient()

	var processor *services.BatchProcessor
	var err error

	for i := 0; i < 3; i++ {
		processor, err = services.NewBatchProcessor(config.GetPostgresURI(), dynamoClient, config.GetOpenAIKey())
		if err == nil {
			break
		}
		log.Printf("Attempt %d: Failed to create batch processor: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatalf("Failed to create batch processor after retries: %v", err)
	}

	log.Println("Starting digest batch service...")

	if err := processor.ProcessConversations(); err != nil {
		log.Printf("Error in initial processing: %v", err)
	}

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		log.Println("Starting scheduled digest run...")
		if err := processor.ProcessConversations(); err != nil {
			log.Printf("Error processing conversations: %v", err)
		}
		log.Println("Digest run completed")
	}
}
