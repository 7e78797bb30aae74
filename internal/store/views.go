package store

import (
	"time"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
)

// Views là các projection chỉ-đọc của store: ba danh sách lọc theo trạng
// thái và số liệu tổng hợp. Tính lại toàn bộ sau mỗi lần ghi thay vì patch
// từng phần, đổi hiệu năng lấy tính đúng — chấp nhận được với cỡ bãi xe
// đã giới hạn bởi MAX_ACTIVE_SESSIONS.
type Views struct {
	Active []domain.ParkingSession
	Paid   []domain.ParkingSession
	Debt   []domain.ParkingSession
	Stats  domain.Statistics
}

func deriveViews(sessions []domain.ParkingSession, now time.Time) Views {
	v := Views{
		Active: []domain.ParkingSession{},
		Paid:   []domain.ParkingSession{},
		Debt:   []domain.ParkingSession{},
	}

	year, month, day := now.Date()

	for _, session := range sessions {
		switch {
		case session.Status == domain.StatusInParking:
			v.Active = append(v.Active, session)
			v.Stats.TotalParking++
		case session.Status == domain.StatusPaid:
			v.Paid = append(v.Paid, session)
			if session.TimeOut.Valid {
				oy, om, od := session.TimeOut.Time.In(now.Location()).Date()
				if oy == year && om == month && od == day {
					v.Stats.TotalPaid++
					v.Stats.TodayRevenue += session.Amount.ValueOrZero()
				}
			}
		case session.Status.IsDebt():
			v.Debt = append(v.Debt, session)
			v.Stats.TotalDebt++
		}
	}

	return v
}
