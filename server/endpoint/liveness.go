package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness answers 200 whenever the process can serve HTTP. It never
// consults component health; a stuck backend should not restart the pod.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName})
	}
}
