package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"zenny/config"
	"zenny/controllers"
	"zenny/routes"
	"zenny/services"
)

func main() {
	gin.SetMode(gin.DebugMode)

	db, err := services.OpenPostgres(config.GetPostgresURI())
	if err != nil {
		log.Fatalf("Failed to connect to ticketing database: %v", err)
	}

	dynamoClient := services.NewDynamoDBClient()
	services.EnsureTables(dynamoClient)

	ticketStore := services.NewTicketStore(db)
	notifications := services.NewNotificationService(db)
	conversations := services.NewConversationService(dynamoClient)
	classifier := services.NewClassifierService(config.GetOpenAIKey())
	crm := services.NewCRMService(ticketStore, notifications)
	autocrm := services.NewAutoCRMService(conversations, classifier, crm)
	auth := services.NewAuthService(config.GetAuthURL())

	router := routes.SetupRouter(
		auth,
		controllers.NewAutoCRMController(autocrm),
		controllers.NewTicketController(ticketStore, notifications),
	)

	port := config.GetPort()
	log.Printf("Server starting on port %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
