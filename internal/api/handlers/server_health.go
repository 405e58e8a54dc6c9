package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetRoot handles GET / — basic liveness for load balancers and evaluators.
func (s *Server) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(c *gin.Context) {
	resp := gin.H{"status": "healthy"}
	if s.pools != nil {
		resp["workers"] = s.pools.Metrics()
	}
	c.JSON(http.StatusOK, resp)
}
