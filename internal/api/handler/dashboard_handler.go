package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/pricing"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/realtime"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/store"
)

type DashboardHandler struct {
	sessionStore   *store.SessionStore
	realtimeClient *realtime.Client
	calculator     *pricing.Calculator
}

func NewDashboardHandler(st *store.SessionStore, rt *realtime.Client, calc *pricing.Calculator) *DashboardHandler {
	return &DashboardHandler{sessionStore: st, realtimeClient: rt, calculator: calc}
}

// GET /parking/statistics
func (h *DashboardHandler) GetStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessionStore.Statistics())
}

// GET /realtime/status — các màn hình chỉ thấy trạng thái kết nối,
// không bao giờ thấy lỗi từng sự kiện.
func (h *DashboardHandler) GetRealtimeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.realtimeClient.State()})
}

// GET /parking/sessions/:id/fee-estimate — phí tạm tính cho xe đang gửi,
// dùng cho màn hình hiển thị. Phí chính thức do remote service chốt lúc
// checkout, giá trị này không được ghi vào store.
func (h *DashboardHandler) EstimateFee(c *gin.Context) {
	session, err := h.sessionStore.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên đỗ xe"})
		return
	}

	timeOut := time.Now()
	if session.TimeOut.Valid {
		timeOut = session.TimeOut.Time
	}

	fee, err := h.calculator.Fee(session.VehicleType, session.TimeIn, timeOut)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "estimated_fee": fee})
}
