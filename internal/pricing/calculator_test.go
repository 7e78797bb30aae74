package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/config"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
)

func testTariffs() map[string]config.Tariff {
	return map[string]config.Tariff{
		"car":       {Base: 10000, PerBlock: 5000},
		"motorbike": {Base: 5000, PerBlock: 2000},
		"bicycle":   {Base: 2000, PerBlock: 1000},
	}
}

func TestFeeZeroDurationChargesBasePrice(t *testing.T) {
	calc := NewCalculator(testTariffs(), 2)
	timeIn := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	// Thời gian gửi bằng 0 vẫn tính 1 block
	for vehicleType, tariff := range testTariffs() {
		fee, err := calc.Fee(domain.VehicleType(vehicleType), timeIn, timeIn)
		require.NoError(t, err)
		assert.Equal(t, tariff.Base, fee, "loại xe %s", vehicleType)
	}
}

func TestFeeBlockBoundaries(t *testing.T) {
	calc := NewCalculator(testTariffs(), 2)
	timeIn := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration time.Duration
		expected float64
	}{
		{"1 phút tính tròn 1 giờ, 1 block", time.Minute, 10000},
		{"đúng 2 giờ vẫn là 1 block", 2 * time.Hour, 10000},
		{"2 giờ 1 phút tràn sang block thứ hai", 2*time.Hour + time.Minute, 15000},
		{"đúng 4 giờ là 2 block", 4 * time.Hour, 15000},
		{"4 giờ 1 phút là 3 block", 4*time.Hour + time.Minute, 20000},
		{"3 giờ là 2 block", 3 * time.Hour, 15000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, err := calc.Fee(domain.VehicleCar, timeIn, timeIn.Add(tt.duration))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fee)
		})
	}
}

func TestFeeMotorbikeAndBicycleTariffs(t *testing.T) {
	calc := NewCalculator(testTariffs(), 2)
	timeIn := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	timeOut := timeIn.Add(3 * time.Hour) // 2 block

	fee, err := calc.Fee(domain.VehicleMotorbike, timeIn, timeOut)
	require.NoError(t, err)
	assert.Equal(t, float64(7000), fee)

	fee, err = calc.Fee(domain.VehicleBicycle, timeIn, timeOut)
	require.NoError(t, err)
	assert.Equal(t, float64(3000), fee)
}

func TestFeeInvalidDuration(t *testing.T) {
	calc := NewCalculator(testTariffs(), 2)
	timeIn := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	_, err := calc.Fee(domain.VehicleCar, timeIn, timeIn.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestFeeUnknownVehicleTypeFallsBackToCar(t *testing.T) {
	calc := NewCalculator(testTariffs(), 2)
	timeIn := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	fee, err := calc.Fee(domain.VehicleType("truck"), timeIn, timeIn.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, float64(10000), fee)
}
