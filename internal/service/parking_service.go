package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/config"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/remote"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/store"
)

var ErrVehicleInLot = errors.New("xe này đang gửi trong bãi")
var ErrLotFull = errors.New("bãi xe đã đầy, không thể nhận thêm xe")

// ValidationError là lỗi kiểm tra dữ liệu cục bộ, trả về trước khi gọi
// remote service, kèm tên trường để màn hình hiển thị tại chỗ.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ParkingService là mutation gateway: mọi thao tác của người dùng
// (check-in, checkout, thu nợ, xóa) đi qua đây. Kiểm tra cục bộ trước,
// gọi remote service, và chỉ khi thành công mới phản ánh kết quả vào
// store — thất bại thì store giữ nguyên.
type ParkingService struct {
	store    *store.SessionStore
	client   remote.Client
	cfg      *config.Config
	validate *validator.Validate
}

func NewParkingService(sessionStore *store.SessionStore, client remote.Client, cfg *config.Config) (*ParkingService, error) {
	plateRe, err := regexp.Compile("(?i)" + cfg.PlatePattern)
	if err != nil {
		return nil, fmt.Errorf("mẫu biển số không hợp lệ: %w", err)
	}

	v := validator.New()
	if err := v.RegisterValidation("plate", func(fl validator.FieldLevel) bool {
		return plateRe.MatchString(domain.NormalizePlate(fl.Field().String()))
	}); err != nil {
		return nil, fmt.Errorf("lỗi đăng ký validator biển số: %w", err)
	}

	return &ParkingService{
		store:    sessionStore,
		client:   client,
		cfg:      cfg,
		validate: v,
	}, nil
}

// CheckIn ghi nhận xe vào bãi. Mọi vi phạm kiểm tra cục bộ đều fail
// ngay tại đây, không gọi remote service.
func (s *ParkingService) CheckIn(ctx context.Context, dto domain.VehicleCheckInDTO) (*domain.ParkingSession, error) {
	dto.PlateNumber = domain.NormalizePlate(dto.PlateNumber)

	if err := s.validateCheckIn(dto); err != nil {
		return nil, err
	}

	if _, found := s.store.FindActiveByPlate(dto.PlateNumber); found {
		log.Printf("Service: Từ chối check-in, xe '%s' đang gửi trong bãi", dto.PlateNumber)
		return nil, ErrVehicleInLot
	}

	if active := s.store.Statistics().TotalParking; active >= s.cfg.MaxActiveSessions {
		log.Printf("Service: Từ chối check-in, bãi xe đã đạt tối đa %d xe", s.cfg.MaxActiveSessions)
		return nil, ErrLotFull
	}

	session, err := s.client.CreateSession(ctx, dto)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi thêm xe vào bãi: %w", err)
	}

	if err := s.store.Upsert(*session); err != nil {
		log.Printf("Service: Không thể đưa phiên mới '%s' vào store: %v", session.ID, err)
	}
	log.Printf("Service: Đã thêm xe '%s' vào bãi (phiên %s)", session.PlateNumber, session.ID)
	return session, nil
}

// Checkout: remote service tính và chốt phí, kết quả upsert thẳng vào
// store mà không chờ kênh realtime phản ánh lại.
func (s *ParkingService) Checkout(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	session, err := s.client.CheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi xử lý xe ra: %w", err)
	}
	if err := s.store.Upsert(*session); err != nil {
		log.Printf("Service: Không thể cập nhật phiên checkout '%s' vào store: %v", session.ID, err)
	}
	log.Printf("Service: Xe '%s' đã ra bãi, trạng thái %s, phí %.0f", session.PlateNumber, session.Status, session.Amount.ValueOrZero())
	return session, nil
}

// ConfirmPayment xác nhận đã thu tiền cho phiên đang chờ thanh toán.
func (s *ParkingService) ConfirmPayment(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	session, err := s.client.ConfirmPayment(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi xác nhận thanh toán: %w", err)
	}
	if err := s.store.Upsert(*session); err != nil {
		log.Printf("Service: Không thể cập nhật phiên thanh toán '%s' vào store: %v", session.ID, err)
	}
	return session, nil
}

// MarkAsDebt đánh dấu phiên thành nợ cước.
func (s *ParkingService) MarkAsDebt(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	session, err := s.client.MarkUnpaid(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi đánh dấu xe nợ: %w", err)
	}
	if err := s.store.Upsert(*session); err != nil {
		log.Printf("Service: Không thể cập nhật phiên nợ '%s' vào store: %v", session.ID, err)
	}
	return session, nil
}

// CollectDebt thu nợ một phiên DEBT/UNPAID.
func (s *ParkingService) CollectDebt(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	session, err := s.client.CollectDebt(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi thu nợ: %w", err)
	}
	if err := s.store.Upsert(*session); err != nil {
		log.Printf("Service: Không thể cập nhật phiên thu nợ '%s' vào store: %v", session.ID, err)
	}
	return session, nil
}

// UpdateSession patch các trường chỉnh sửa được (ghi chú, biển số...).
func (s *ParkingService) UpdateSession(ctx context.Context, sessionID string, dto domain.UpdateSessionDTO) (*domain.ParkingSession, error) {
	if dto.PlateNumber != nil {
		normalized := domain.NormalizePlate(*dto.PlateNumber)
		dto.PlateNumber = &normalized
	}
	session, err := s.client.UpdateSession(ctx, sessionID, dto)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi cập nhật: %w", err)
	}
	if err := s.store.Upsert(*session); err != nil {
		log.Printf("Service: Không thể cập nhật phiên '%s' vào store: %v", session.ID, err)
	}
	return session, nil
}

// DeleteSession xóa một phiên đã chốt (sửa sai hành chính).
func (s *ParkingService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("lỗi khi xóa: %w", err)
	}
	s.store.Remove(sessionID)
	log.Printf("Service: Đã xóa phiên đỗ xe '%s'", sessionID)
	return nil
}

// SearchByPlate tìm kiếm trên remote service theo biển số.
func (s *ParkingService) SearchByPlate(ctx context.Context, plate string) ([]domain.ParkingSession, error) {
	sessions, err := s.client.SearchByPlate(ctx, domain.NormalizePlate(plate))
	if err != nil {
		return nil, fmt.Errorf("lỗi khi tìm kiếm: %w", err)
	}
	return sessions, nil
}

// VehicleHistory lấy lịch sử gửi xe của một biển số.
func (s *ParkingService) VehicleHistory(ctx context.Context, plate string) ([]domain.ParkingSession, error) {
	sessions, err := s.client.VehicleHistory(ctx, domain.NormalizePlate(plate))
	if err != nil {
		return nil, fmt.Errorf("lỗi khi lấy lịch sử xe: %w", err)
	}
	return sessions, nil
}

// RefreshAll tải toàn bộ phiên từ remote service và thay thế collection.
// Thất bại thì store giữ nguyên trạng thái cũ.
func (s *ParkingService) RefreshAll(ctx context.Context) error {
	sessions, err := s.client.ListSessions(ctx, domain.SessionFilterDTO{})
	if err != nil {
		return fmt.Errorf("lỗi khi tải danh sách xe: %w", err)
	}
	s.store.ReplaceAll(sessions)
	return nil
}

// RunRefreshLoop chạy full refresh định kỳ cho đến khi ctx bị hủy.
func (s *ParkingService) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Service: Refresh job đã dừng theo yêu cầu teardown.")
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := s.RefreshAll(refreshCtx); err != nil {
				log.Printf("Service: Lỗi full refresh: %v", err)
			}
			cancel()
		}
	}
}

func (s *ParkingService) validateCheckIn(dto domain.VehicleCheckInDTO) error {
	err := s.validate.Struct(dto)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		first := ve[0]
		switch first.StructField() {
		case "PlateNumber":
			if first.Tag() == "required" {
				return &ValidationError{Field: "plate_number", Message: "Biển số xe không được để trống"}
			}
			return &ValidationError{Field: "plate_number", Message: "Biển số xe không hợp lệ. VD: 30A-12345"}
		case "VehicleType":
			if first.Tag() == "required" {
				return &ValidationError{Field: "vehicle_type", Message: "Loại xe không được để trống"}
			}
			return &ValidationError{Field: "vehicle_type", Message: "Loại xe không hợp lệ"}
		case "Note":
			return &ValidationError{Field: "note", Message: "Ghi chú quá dài"}
		}
	}
	return &ValidationError{Field: "", Message: "Dữ liệu không hợp lệ"}
}
