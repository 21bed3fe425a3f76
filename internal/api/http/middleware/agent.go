package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/renthus/renthus-admin/internal/printing"
)

const contextAgent = "print_agent"

// AgentAuth authenticates desktop print agents by their bearer API key.
// Missing, malformed and unknown keys all produce the same 401 body.
func AgentAuth(agents *printing.AgentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		agent, err := agents.VerifyAPIKey(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil || agent == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(contextAgent, agent)
		c.Next()
	}
}

// Agent returns the authenticated print agent set by AgentAuth.
func Agent(c *gin.Context) *printing.Agent {
	v, _ := c.Get(contextAgent)
	agent, _ := v.(*printing.Agent)
	return agent
}
