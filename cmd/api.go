package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tanda-protocol/tanda-collector/processor"
	"github.com/tanda-protocol/tanda-collector/scheduler"
)

const historyQueryTimeout = 10 * time.Second

// startAPI serves read-only lookups: payment history per contributor and the
// latest collection result per request id.
func startAPI(a *AppState, proc *processor.Processor, sched *scheduler.Scheduler) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if err := router.SetTrustedProxies(a.Config.Api.TrustedProxies); err != nil {
		a.Logger.Error("unable to set trusted proxies", "err", err)
		return
	}

	router.GET("/history/:contributor", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), historyQueryTimeout)
		defer cancel()

		// no credential over the API: encrypted fields stay opaque
		history, err := proc.GetPaymentHistory(ctx, c.Param("contributor"), "")
		if err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusOK, history)
	})

	router.GET("/result/:id", func(c *gin.Context) {
		id := c.Param("id")
		if result, ok := sched.Results.Load(id); ok {
			c.IndentedJSON(http.StatusOK, result)
			return
		}
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "result not found"})
	})

	if err := router.Run(a.Config.Api.ListenAddress); err != nil {
		a.Logger.Error("api server stopped", "err", err)
	}
}
