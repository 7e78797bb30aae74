package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/remote"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/service"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/store"
)

type ParkingSessionHandler struct {
	parkingService *service.ParkingService
	sessionStore   *store.SessionStore
}

func NewParkingSessionHandler(ps *service.ParkingService, st *store.SessionStore) *ParkingSessionHandler {
	return &ParkingSessionHandler{parkingService: ps, sessionStore: st}
}

// GET /parking/sessions?view=active|paid|debt|all
// Các màn hình chỉ đọc view dẫn xuất, không bao giờ đụng trực tiếp store.
func (h *ParkingSessionHandler) ListSessions(c *gin.Context) {
	view := c.DefaultQuery("view", "all")
	views := h.sessionStore.Views()

	switch view {
	case "active":
		c.JSON(http.StatusOK, views.Active)
	case "paid":
		c.JSON(http.StatusOK, views.Paid)
	case "debt":
		c.JSON(http.StatusOK, views.Debt)
	case "all":
		c.JSON(http.StatusOK, h.sessionStore.All())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số view không hợp lệ (active|paid|debt|all)"})
	}
}

// GET /parking/sessions/:id
func (h *ParkingSessionHandler) GetSessionByID(c *gin.Context) {
	session, err := h.sessionStore.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy phiên đỗ xe"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// POST /parking/sessions (check-in)
func (h *ParkingSessionHandler) CheckIn(c *gin.Context) {
	var dto domain.VehicleCheckInDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	session, err := h.parkingService.CheckIn(c.Request.Context(), dto)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Đã thêm xe vào bãi.", "data": session})
}

// POST /parking/sessions/:id/checkout
func (h *ParkingSessionHandler) Checkout(c *gin.Context) {
	session, err := h.parkingService.Checkout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Xe ra thành công", "data": session})
}

// POST /payment/confirm
func (h *ParkingSessionHandler) ConfirmPayment(c *gin.Context) {
	var body struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu session_id"})
		return
	}
	session, err := h.parkingService.ConfirmPayment(c.Request.Context(), body.SessionID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Thanh toán thành công!", "data": session})
}

// POST /payment/mark-unpaid
func (h *ParkingSessionHandler) MarkAsDebt(c *gin.Context) {
	var body struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu session_id"})
		return
	}
	session, err := h.parkingService.MarkAsDebt(c.Request.Context(), body.SessionID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã đánh dấu xe nợ", "data": session})
}

// POST /payment/collect-debt
func (h *ParkingSessionHandler) CollectDebt(c *gin.Context) {
	var body struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu session_id"})
		return
	}
	session, err := h.parkingService.CollectDebt(c.Request.Context(), body.SessionID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã thu nợ thành công!", "data": session})
}

// PUT /parking/sessions/:id
func (h *ParkingSessionHandler) UpdateSession(c *gin.Context) {
	var dto domain.UpdateSessionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}
	session, err := h.parkingService.UpdateSession(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cập nhật thành công!", "data": session})
}

// DELETE /parking/sessions/:id
func (h *ParkingSessionHandler) DeleteSession(c *gin.Context) {
	if err := h.parkingService.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Xóa thành công"})
}

// GET /parking/sessions/search?plate=
func (h *ParkingSessionHandler) SearchByPlate(c *gin.Context) {
	plate := c.Query("plate")
	if plate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu tham số plate"})
		return
	}
	sessions, err := h.parkingService.SearchByPlate(c.Request.Context(), plate)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GET /parking/vehicles/:plate/history
func (h *ParkingSessionHandler) VehicleHistory(c *gin.Context) {
	sessions, err := h.parkingService.VehicleHistory(c.Request.Context(), c.Param("plate"))
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func respondMutationError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validationErr.Message, "field": validationErr.Field})
	case errors.Is(err, service.ErrVehicleInLot):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrLotFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, remote.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Phiên đăng nhập hết hạn. Vui lòng đăng nhập lại."})
	case errors.Is(err, remote.ErrNetwork):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Lỗi kết nối mạng. Vui lòng thử lại."})
	default:
		// Message từ remote service được chuyển nguyên văn
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
