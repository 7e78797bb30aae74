package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/config"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
)

var ErrInvalidDuration = errors.New("thời gian ra sớm hơn thời gian vào")

// Calculator tính phí gửi xe theo block thời gian cố định.
// Block đầu tiên tính giá cơ bản, mỗi block tiếp theo cộng thêm giá per-block.
type Calculator struct {
	tariffs    map[string]config.Tariff
	blockHours int
}

func NewCalculator(tariffs map[string]config.Tariff, blockHours int) *Calculator {
	if blockHours <= 0 {
		blockHours = 2
	}
	return &Calculator{
		tariffs:    tariffs,
		blockHours: blockHours,
	}
}

// Fee tính phí cho một lượt gửi xe.
// Số giờ làm tròn LÊN giờ chẵn (1 phút tính 1 giờ), số block làm tròn LÊN,
// tối thiểu 1 block kể cả khi thời gian gửi bằng 0.
func (c *Calculator) Fee(vehicleType domain.VehicleType, timeIn, timeOut time.Time) (float64, error) {
	if timeOut.Before(timeIn) {
		return 0, ErrInvalidDuration
	}

	hours := int(math.Ceil(timeOut.Sub(timeIn).Hours()))

	blocks := (hours + c.blockHours - 1) / c.blockHours
	if blocks < 1 {
		blocks = 1
	}

	tariff := c.tariffFor(vehicleType)
	return tariff.Base + float64(blocks-1)*tariff.PerBlock, nil
}

// Loại xe không có trong biểu phí tính theo giá ô tô.
func (c *Calculator) tariffFor(vehicleType domain.VehicleType) config.Tariff {
	if t, ok := c.tariffs[string(vehicleType)]; ok {
		return t
	}
	return c.tariffs[string(domain.VehicleCar)]
}
