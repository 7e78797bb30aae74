package domain

import (
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

type ParkingStatus string

const (
	StatusInParking   ParkingStatus = "IN_PARKING"
	StatusWaitPayment ParkingStatus = "WAIT_PAYMENT"
	StatusPaid        ParkingStatus = "PAID"
	StatusDebt        ParkingStatus = "DEBT"
	StatusUnpaid      ParkingStatus = "UNPAID" // tên cũ của DEBT, xử lý như nhau ở mọi nơi
)

func (s ParkingStatus) IsValid() bool {
	switch s {
	case StatusInParking, StatusWaitPayment, StatusPaid, StatusDebt, StatusUnpaid:
		return true
	}
	return false
}

// IsDebt trả về true cho cả DEBT và UNPAID.
func (s ParkingStatus) IsDebt() bool {
	return s == StatusDebt || s == StatusUnpaid
}

// IsTerminal: phiên đã chốt, không chuyển trạng thái nữa.
func (s ParkingStatus) IsTerminal() bool {
	return s == StatusPaid || s.IsDebt()
}

type VehicleType string

const (
	VehicleCar       VehicleType = "car"
	VehicleMotorbike VehicleType = "motorbike"
	VehicleBicycle   VehicleType = "bicycle"
)

func (v VehicleType) IsValid() bool {
	switch v {
	case VehicleCar, VehicleMotorbike, VehicleBicycle:
		return true
	}
	return false
}

// ParkingSession là một lượt gửi xe, từ lúc vào bãi đến khi chốt (PAID/DEBT).
type ParkingSession struct {
	ID          string        `json:"id"`
	PlateNumber string        `json:"plate_number"`
	VehicleType VehicleType   `json:"vehicle_type"`
	TimeIn      time.Time     `json:"time_in"`
	TimeOut     null.Time     `json:"time_out"`
	Status      ParkingStatus `json:"status"`
	Amount      null.Float    `json:"amount"`
	Note        null.String   `json:"note"`
}

// HasRequiredFields kiểm tra các trường bắt buộc trước khi cho vào store.
func (s *ParkingSession) HasRequiredFields() bool {
	return s.ID != "" &&
		s.PlateNumber != "" &&
		s.VehicleType != "" &&
		!s.TimeIn.IsZero() &&
		s.Status.IsValid()
}

// NormalizePlate chuẩn hóa biển số: viết hoa, bỏ khoảng trắng.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}

// Statistics là số liệu tổng hợp tính lại từ store, không lưu trữ.
type Statistics struct {
	TotalParking int     `json:"totalParking"`
	TotalPaid    int     `json:"totalPaid"` // số phiên PAID có time_out trong ngày hôm nay
	TotalDebt    int     `json:"totalDebt"`
	TodayRevenue float64 `json:"todayRevenue"`
}

// DTO cho API check-in (màn hình gửi lên)
type VehicleCheckInDTO struct {
	PlateNumber string `json:"plate_number" validate:"required,plate"`
	VehicleType string `json:"vehicle_type" validate:"required,oneof=car motorbike bicycle"`
	Note        string `json:"note" validate:"max=255"`
}

// DTO cập nhật phiên (patch từng trường, nil = giữ nguyên)
type UpdateSessionDTO struct {
	PlateNumber *string `json:"plate_number,omitempty"`
	VehicleType *string `json:"vehicle_type,omitempty"`
	Note        *string `json:"note,omitempty"`
}

type SessionFilterDTO struct {
	Status string `form:"status"`
	Date   string `form:"date"` // YYYY-MM-DD
}
