package controllers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"zenny/middlewares"
	"zenny/models"
)

type autoCRMHandler interface {
	HandleQuery(ctx context.Context, userID, query string) (string, error)
	RecentMessages(ctx context.Context, userID string) ([]models.Message, error)
}

// AutoCRMController exposes the assistant endpoint. Only agents and admins
// may use it.
type AutoCRMController struct {
	autocrm autoCRMHandler
}

func NewAutoCRMController(autocrm autoCRMHandler) *AutoCRMController {
	return &AutoCRMController{autocrm: autocrm}
}

func (ct *AutoCRMController) HandleAutoCRM(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	if user.Role != models.RoleAgent && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized. Only agents and admins can use AutoCRM."})
		return
	}

	var request struct {
		Query  string `json:"query" binding:"required"`
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.BindJSON(&request); err != nil {
		log.Printf("Error binding JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query and userId are required"})
		return
	}

	reply, err := ct.autocrm.HandleQuery(c.Request.Context(), request.UserID, request.Query)
	if err != nil {
		log.Printf("Error handling AutoCRM request for user %s: %v", request.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// GetAutoCRMMessages returns the caller's current conversation inside the
// 6-hour display window.
func (ct *AutoCRMController) GetAutoCRMMessages(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	if user.Role != models.RoleAgent && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized. Only agents and admins can use AutoCRM."})
		return
	}

	messages, err := ct.autocrm.RecentMessages(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("Error fetching messages for user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
