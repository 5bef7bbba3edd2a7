// File: parkwise/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Chat endpoints
	ChatMessageHandler gin.HandlerFunc
	ChatStatusHandler  gin.HandlerFunc

	// Admin endpoints
	AdminListPendingHandler gin.HandlerFunc
	AdminDecisionHandler    gin.HandlerFunc
	AdminGetDecisionHandler gin.HandlerFunc
	AdminBoardHandler       gin.HandlerFunc
}
