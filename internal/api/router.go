package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/api/handler"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/api/middleware"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/pricing"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/realtime"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/service"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/store"
)

func SetupRouter(ps *service.ParkingService, st *store.SessionStore, rt *realtime.Client,
	calc *pricing.Calculator, authMw *middleware.AuthMiddleware) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	sessionH := handler.NewParkingSessionHandler(ps, st)
	dashboardH := handler.NewDashboardHandler(st, rt, calc)

	api := r.Group("/api")
	api.Use(authMw.Authenticate())
	{
		parkingRoutes := api.Group("/parking")
		{
			parkingRoutes.GET("/sessions", sessionH.ListSessions)
			parkingRoutes.GET("/sessions/search", sessionH.SearchByPlate)
			parkingRoutes.GET("/sessions/:id", sessionH.GetSessionByID)
			parkingRoutes.GET("/sessions/:id/fee-estimate", dashboardH.EstimateFee)
			parkingRoutes.POST("/sessions", sessionH.CheckIn)
			parkingRoutes.POST("/sessions/:id/checkout", sessionH.Checkout)
			parkingRoutes.PUT("/sessions/:id", sessionH.UpdateSession)
			parkingRoutes.DELETE("/sessions/:id", sessionH.DeleteSession)
			parkingRoutes.GET("/vehicles/:plate/history", sessionH.VehicleHistory)
			parkingRoutes.GET("/statistics", dashboardH.GetStatistics)
		}

		paymentRoutes := api.Group("/payment")
		{
			paymentRoutes.POST("/confirm", sessionH.ConfirmPayment)
			paymentRoutes.POST("/mark-unpaid", sessionH.MarkAsDebt)
			paymentRoutes.POST("/collect-debt", sessionH.CollectDebt)
		}

		api.GET("/realtime/status", dashboardH.GetRealtimeStatus)
	}

	return r
}
