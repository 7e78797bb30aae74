package store

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy phiên đỗ xe")
var ErrMissingFields = errors.New("bản ghi phiên đỗ xe thiếu trường bắt buộc")
var ErrDuplicatePlate = errors.New("xe này đang gửi trong bãi")

// SessionStore là bản sao cục bộ có thẩm quyền của toàn bộ phiên đỗ xe.
// Ba nguồn ghi (full refresh, kênh realtime, mutation gateway) đều đi qua
// đây; mutex đảm bảo không có thao tác nào bị xen giữa chừng. Views được
// tính lại toàn bộ sau mỗi lần ghi.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ParkingSession
	views    Views
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]domain.ParkingSession),
		now:      time.Now,
	}
	s.views = deriveViews(nil, s.now())
	return s
}

// ReplaceAll thay toàn bộ collection sau một lần full refresh.
// Bản ghi thiếu trường bắt buộc bị loại và ghi log, không chặn cả đợt.
func (s *SessionStore) ReplaceAll(sessions []domain.ParkingSession) {
	next := make(map[string]domain.ParkingSession, len(sessions))
	activePlates := make(map[string]string)
	for _, session := range sessions {
		if !session.HasRequiredFields() {
			log.Printf("Store: Bỏ qua bản ghi thiếu trường bắt buộc trong full refresh (id='%s')", session.ID)
			continue
		}
		session.PlateNumber = domain.NormalizePlate(session.PlateNumber)
		// Dữ liệu server là nguồn chân lý nên vẫn giữ cả hai bản ghi,
		// nhưng trùng biển số IN_PARKING phải nhìn thấy được trong log
		if session.Status == domain.StatusInParking {
			if otherID, found := activePlates[session.PlateNumber]; found {
				log.Printf("Store: Full refresh có hai phiên IN_PARKING trùng biển số '%s' (id '%s' và '%s')",
					session.PlateNumber, otherID, session.ID)
			} else {
				activePlates[session.PlateNumber] = session.ID
			}
		}
		next[session.ID] = session
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = next
	s.recompute()
}

// Upsert chèn mới nếu chưa có id, ngược lại merge theo kiểu partial update:
// trường vắng mặt giữ nguyên, riêng status, time_out, amount khi có mặt thì
// luôn ghi đè toàn bộ (chuyển trạng thái chốt không bao giờ là partial).
func (s *SessionStore) Upsert(in domain.ParkingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[in.ID]
	if !ok {
		if !in.HasRequiredFields() {
			log.Printf("Store: Từ chối upsert bản ghi mới thiếu trường bắt buộc (id='%s')", in.ID)
			return ErrMissingFields
		}
		in.PlateNumber = domain.NormalizePlate(in.PlateNumber)
		if in.Status == domain.StatusInParking {
			if other, found := s.findActiveByPlate(in.PlateNumber); found && other.ID != in.ID {
				log.Printf("Store: Từ chối phiên IN_PARKING trùng biển số '%s' (id mới '%s', id hiện tại '%s')",
					in.PlateNumber, in.ID, other.ID)
				return ErrDuplicatePlate
			}
		}
		s.sessions[in.ID] = in
		s.recompute()
		return nil
	}

	merged := existing
	if in.PlateNumber != "" {
		merged.PlateNumber = domain.NormalizePlate(in.PlateNumber)
	}
	if in.VehicleType != "" {
		merged.VehicleType = in.VehicleType
	}
	if !in.TimeIn.IsZero() {
		merged.TimeIn = in.TimeIn
	}
	if in.Note.Valid {
		merged.Note = in.Note
	}
	// Các trường chốt trạng thái: ghi đè toàn bộ khi có mặt
	if in.Status != "" {
		if !in.Status.IsValid() {
			log.Printf("Store: Từ chối upsert với trạng thái không hợp lệ '%s' (id='%s')", in.Status, in.ID)
			return ErrMissingFields
		}
		merged.Status = in.Status
	}
	if in.TimeOut.Valid {
		merged.TimeOut = in.TimeOut
	}
	if in.Amount.Valid {
		merged.Amount = in.Amount
	}

	if merged.Status == domain.StatusInParking {
		if other, found := s.findActiveByPlate(merged.PlateNumber); found && other.ID != merged.ID {
			log.Printf("Store: Từ chối cập nhật gây trùng biển số IN_PARKING '%s' (id='%s')", merged.PlateNumber, merged.ID)
			return ErrDuplicatePlate
		}
	}

	s.sessions[merged.ID] = merged
	s.recompute()
	return nil
}

// Remove xóa phiên nếu có; id không tồn tại là no-op vì xóa có thể
// chạy đua với một đợt re-fetch.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	s.recompute()
}

func (s *SessionStore) Get(id string) (domain.ParkingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ParkingSession{}, ErrNotFound
	}
	return session, nil
}

// All trả về toàn bộ phiên, xe vào gần nhất đứng trước.
func (s *SessionStore) All() []domain.ParkingSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByTimeInDesc(s.sessions)
}

// FindActiveByPlate tìm phiên IN_PARKING theo biển số đã chuẩn hóa.
func (s *SessionStore) FindActiveByPlate(plate string) (domain.ParkingSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findActiveByPlate(domain.NormalizePlate(plate))
}

func (s *SessionStore) findActiveByPlate(normalizedPlate string) (domain.ParkingSession, bool) {
	for _, session := range s.sessions {
		if session.Status == domain.StatusInParking && session.PlateNumber == normalizedPlate {
			return session, true
		}
	}
	return domain.ParkingSession{}, false
}

// Views trả về snapshot của các view dẫn xuất hiện tại.
func (s *SessionStore) Views() Views {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views
}

// Statistics trả về số liệu tổng hợp hiện tại.
func (s *SessionStore) Statistics() domain.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views.Stats
}

// recompute được gọi sau mỗi lần ghi, caller phải đang giữ write lock.
func (s *SessionStore) recompute() {
	s.views = deriveViews(sortedByTimeInDesc(s.sessions), s.now())
}

func sortedByTimeInDesc(sessions map[string]domain.ParkingSession) []domain.ParkingSession {
	out := make([]domain.ParkingSession, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeIn.Equal(out[j].TimeIn) {
			return out[i].ID < out[j].ID
		}
		return out[i].TimeIn.After(out[j].TimeIn)
	})
	return out
}
