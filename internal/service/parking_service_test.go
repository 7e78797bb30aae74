package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/config"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/store"
)

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// fakeRemote đếm số lần gọi để kiểm tra rằng vi phạm validation cục bộ
// không phát sinh request nào tới remote service.
type fakeRemote struct {
	calls          int
	listCalls      atomic.Int32
	createResult   *domain.ParkingSession
	createErr      error
	checkoutResult *domain.ParkingSession
	checkoutErr    error
	listResult     []domain.ParkingSession
	listErr        error
	collectResult  *domain.ParkingSession
	markResult     *domain.ParkingSession
	confirmResult  *domain.ParkingSession
	updateResult   *domain.ParkingSession
	searchResult   []domain.ParkingSession
	historyResult  []domain.ParkingSession
	deleteErr      error
	lastDeletedID  string
}

func (f *fakeRemote) Login(ctx context.Context, username, password string) error { f.calls++; return nil }

func (f *fakeRemote) ListSessions(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	f.calls++
	f.listCalls.Add(1)
	return f.listResult, f.listErr
}

func (f *fakeRemote) GetSession(ctx context.Context, id string) (*domain.ParkingSession, error) {
	f.calls++
	return nil, nil
}

func (f *fakeRemote) CreateSession(ctx context.Context, dto domain.VehicleCheckInDTO) (*domain.ParkingSession, error) {
	f.calls++
	return f.createResult, f.createErr
}

func (f *fakeRemote) UpdateSession(ctx context.Context, id string, dto domain.UpdateSessionDTO) (*domain.ParkingSession, error) {
	f.calls++
	return f.updateResult, nil
}

func (f *fakeRemote) CheckoutSession(ctx context.Context, id string) (*domain.ParkingSession, error) {
	f.calls++
	return f.checkoutResult, f.checkoutErr
}

func (f *fakeRemote) DeleteSession(ctx context.Context, id string) error {
	f.calls++
	f.lastDeletedID = id
	return f.deleteErr
}

func (f *fakeRemote) SearchByPlate(ctx context.Context, plate string) ([]domain.ParkingSession, error) {
	f.calls++
	return f.searchResult, nil
}

func (f *fakeRemote) VehicleHistory(ctx context.Context, plate string) ([]domain.ParkingSession, error) {
	f.calls++
	return f.historyResult, nil
}

func (f *fakeRemote) ConfirmPayment(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	f.calls++
	return f.confirmResult, nil
}

func (f *fakeRemote) MarkUnpaid(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	f.calls++
	return f.markResult, nil
}

func (f *fakeRemote) CollectDebt(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	f.calls++
	return f.collectResult, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxActiveSessions: 999,
		PlatePattern:      `^[0-9]{2}[A-Z]{1,2}-?[0-9]{4,5}$`,
		TimeBlockHours:    2,
	}
}

func newTestService(t *testing.T, remote *fakeRemote, cfg *config.Config) (*ParkingService, *store.SessionStore) {
	t.Helper()
	sessionStore := store.NewSessionStore()
	svc, err := NewParkingService(sessionStore, remote, cfg)
	require.NoError(t, err)
	return svc, sessionStore
}

func TestCheckInCreatesActiveSession(t *testing.T) {
	created := &domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "30A12345",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		Status:      domain.StatusInParking,
	}
	remote := &fakeRemote{createResult: created}
	svc, sessionStore := newTestService(t, remote, testConfig())

	session, err := svc.CheckIn(context.Background(), domain.VehicleCheckInDTO{
		PlateNumber: "30A12345",
		VehicleType: "car",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)

	views := sessionStore.Views()
	require.Len(t, views.Active, 1)
	assert.Equal(t, domain.StatusInParking, views.Active[0].Status)
}

func TestCheckInDuplicatePlateRejectedWithoutRemoteCall(t *testing.T) {
	remote := &fakeRemote{}
	svc, sessionStore := newTestService(t, remote, testConfig())

	require.NoError(t, sessionStore.Upsert(domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "30A12345",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		Status:      domain.StatusInParking,
	}))

	_, err := svc.CheckIn(context.Background(), domain.VehicleCheckInDTO{
		PlateNumber: "30a 12345", // cùng biển số sau khi chuẩn hóa
		VehicleType: "car",
	})
	assert.ErrorIs(t, err, ErrVehicleInLot)
	assert.Equal(t, 0, remote.calls, "vi phạm cục bộ không được gọi remote")
}

func TestCheckInValidationFailsLocally(t *testing.T) {
	remote := &fakeRemote{}
	svc, _ := newTestService(t, remote, testConfig())

	tests := []struct {
		name string
		dto  domain.VehicleCheckInDTO
	}{
		{"biển số rỗng", domain.VehicleCheckInDTO{PlateNumber: "", VehicleType: "car"}},
		{"biển số sai định dạng", domain.VehicleCheckInDTO{PlateNumber: "XYZ", VehicleType: "car"}},
		{"loại xe rỗng", domain.VehicleCheckInDTO{PlateNumber: "30A-12345", VehicleType: ""}},
		{"loại xe ngoài danh sách", domain.VehicleCheckInDTO{PlateNumber: "30A-12345", VehicleType: "truck"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CheckIn(context.Background(), tt.dto)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
	assert.Equal(t, 0, remote.calls)
}

func TestCheckInLotFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxActiveSessions = 1
	remote := &fakeRemote{}
	svc, sessionStore := newTestService(t, remote, cfg)

	require.NoError(t, sessionStore.Upsert(domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "29B11111",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		Status:      domain.StatusInParking,
	}))

	_, err := svc.CheckIn(context.Background(), domain.VehicleCheckInDTO{
		PlateNumber: "30A-12345",
		VehicleType: "car",
	})
	assert.ErrorIs(t, err, ErrLotFull)
	assert.Equal(t, 0, remote.calls)
}

func TestCheckInRemoteFailureLeavesStoreUntouched(t *testing.T) {
	remote := &fakeRemote{createErr: errors.New("Lỗi máy chủ. Vui lòng thử lại sau.")}
	svc, sessionStore := newTestService(t, remote, testConfig())

	_, err := svc.CheckIn(context.Background(), domain.VehicleCheckInDTO{
		PlateNumber: "30A-12345",
		VehicleType: "car",
	})
	require.Error(t, err)
	assert.Empty(t, sessionStore.All())
}

func TestCheckoutReconcilesTerminalState(t *testing.T) {
	active := domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "30A12345",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		Status:      domain.StatusInParking,
	}
	// Remote chốt phiên: 3 giờ = 2 block = base + per_block
	checkedOut := active
	checkedOut.Status = domain.StatusPaid
	checkedOut.TimeOut = null.TimeFrom(t0.Add(3 * time.Hour))
	checkedOut.Amount = null.FloatFrom(15000)

	remote := &fakeRemote{checkoutResult: &checkedOut}
	svc, sessionStore := newTestService(t, remote, testConfig())
	require.NoError(t, sessionStore.Upsert(active))

	session, err := svc.Checkout(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, session.Status)
	assert.Equal(t, float64(15000), session.Amount.ValueOrZero())

	views := sessionStore.Views()
	assert.Empty(t, views.Active)
	require.Len(t, views.Paid, 1)
	assert.Equal(t, "s1", views.Paid[0].ID)
}

func TestCheckoutRemoteFailureLeavesStoreUntouched(t *testing.T) {
	active := domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "30A12345",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		Status:      domain.StatusInParking,
	}
	remote := &fakeRemote{checkoutErr: errors.New("Lỗi kết nối mạng. Vui lòng thử lại.")}
	svc, sessionStore := newTestService(t, remote, testConfig())
	require.NoError(t, sessionStore.Upsert(active))

	_, err := svc.Checkout(context.Background(), "s1")
	require.Error(t, err)

	stored, getErr := sessionStore.Get("s1")
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusInParking, stored.Status)
}

func TestDeleteSessionRemovesFromStore(t *testing.T) {
	remote := &fakeRemote{}
	svc, sessionStore := newTestService(t, remote, testConfig())

	terminal := domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "30A12345",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		TimeOut:     null.TimeFrom(t0.Add(time.Hour)),
		Status:      domain.StatusPaid,
		Amount:      null.FloatFrom(10000),
	}
	require.NoError(t, sessionStore.Upsert(terminal))

	require.NoError(t, svc.DeleteSession(context.Background(), "s1"))
	assert.Equal(t, "s1", remote.lastDeletedID)
	_, err := sessionStore.Get("s1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshAllReplacesCollection(t *testing.T) {
	remote := &fakeRemote{
		listResult: []domain.ParkingSession{
			{
				ID:          "s2",
				PlateNumber: "29B11111",
				VehicleType: domain.VehicleMotorbike,
				TimeIn:      t0,
				Status:      domain.StatusInParking,
			},
		},
	}
	svc, sessionStore := newTestService(t, remote, testConfig())
	require.NoError(t, sessionStore.Upsert(domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "30A12345",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		Status:      domain.StatusInParking,
	}))

	require.NoError(t, svc.RefreshAll(context.Background()))

	all := sessionStore.All()
	require.Len(t, all, 1)
	assert.Equal(t, "s2", all[0].ID)
}

func TestRefreshAllFailureKeepsPriorState(t *testing.T) {
	remote := &fakeRemote{listErr: errors.New("Lỗi kết nối mạng. Vui lòng thử lại.")}
	svc, sessionStore := newTestService(t, remote, testConfig())
	require.NoError(t, sessionStore.Upsert(domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "30A12345",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		Status:      domain.StatusInParking,
	}))

	require.Error(t, svc.RefreshAll(context.Background()))
	assert.Len(t, sessionStore.All(), 1)
}

func TestCollectDebtReconcilesPaidState(t *testing.T) {
	collected := &domain.ParkingSession{
		ID:          "s1",
		PlateNumber: "30A12345",
		VehicleType: domain.VehicleCar,
		TimeIn:      t0,
		TimeOut:     null.TimeFrom(t0.Add(time.Hour)),
		Status:      domain.StatusPaid,
		Amount:      null.FloatFrom(10000),
	}
	remote := &fakeRemote{collectResult: collected}
	svc, sessionStore := newTestService(t, remote, testConfig())

	debt := *collected
	debt.Status = domain.StatusDebt
	require.NoError(t, sessionStore.Upsert(debt))

	_, err := svc.CollectDebt(context.Background(), "s1")
	require.NoError(t, err)

	views := sessionStore.Views()
	assert.Empty(t, views.Debt)
	assert.Len(t, views.Paid, 1)
}

func TestRunRefreshLoopStopsOnContextCancel(t *testing.T) {
	remote := &fakeRemote{}
	svc, _ := newTestService(t, remote, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunRefreshLoop(ctx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		return remote.listCalls.Load() >= 1
	}, time.Second, time.Millisecond)

	cancel()
	<-done

	// Sau teardown không còn lần refresh nào nữa
	seen := remote.listCalls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, seen, remote.listCalls.Load())
}
