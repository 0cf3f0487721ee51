package routes

import (
	"github.com/gin-gonic/gin"

	"zenny/controllers"
	"zenny/middlewares"
	"zenny/services"
)

func SetupRouter(auth *services.AuthService, autocrm *controllers.AutoCRMController, tickets *controllers.TicketController) *gin.Engine {
	r := gin.Default()
	r.Use(middlewares.Logger(), middlewares.CORS())

	authed := r.Group("", middlewares.Auth(auth))

	// AutoCRM assistant
	authed.POST("/autocrm", autocrm.HandleAutoCRM)
	authed.GET("/autocrm/messages", autocrm.GetAutoCRMMessages)

	// Ticket CRUD
	authed.POST("/tickets", tickets.CreateTicket)
	authed.PUT("/tickets", tickets.UpdateTicket)
	authed.GET("/tickets", tickets.ListTickets)

	// Agent lookup for assignment
	authed.GET("/agents/search", tickets.SearchAgents)

	return r
}
