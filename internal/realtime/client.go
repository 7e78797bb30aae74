package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/config"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/remote"
	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/store"
)

type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StateFailed       State = "FAILED"
)

var ErrRetryBudgetExhausted = errors.New("kênh realtime đã hết số lần thử kết nối lại")

// Client duy trì kênh websocket tới remote service và dịch từng sự kiện
// nhận được thành một thao tác trên SessionStore, áp dụng theo đúng thứ
// tự nhận. Kết nối rớt thì tự nối lại với backoff lũy thừa; hết ngân
// sách retry thì dừng hẳn ở trạng thái FAILED và báo cho caller một lần.
type Client struct {
	wsURL        string
	creds        *remote.Credentials
	sessionStore *store.SessionStore

	dialer       *websocket.Dialer
	initialDelay time.Duration
	maxDelay     time.Duration
	maxAttempts  int

	mu    sync.RWMutex
	state State
}

func NewClient(cfg *config.Config, creds *remote.Credentials, sessionStore *store.SessionStore) *Client {
	return &Client{
		wsURL:        cfg.WSURL,
		creds:        creds,
		sessionStore: sessionStore,
		dialer:       websocket.DefaultDialer,
		initialDelay: cfg.ReconnectDelay,
		maxDelay:     cfg.ReconnectDelayMax,
		maxAttempts:  cfg.ReconnectAttempts,
		state:        StateDisconnected,
	}
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run chạy vòng kết nối cho đến khi ctx bị hủy (teardown, trả về nil),
// hết ngân sách retry (ErrRetryBudgetExhausted) hoặc handshake bị từ
// chối xác thực (remote.ErrUnauthorized — không retry, cần đăng nhập lại).
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	delay := c.initialDelay

	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return nil
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			if errors.Is(err, remote.ErrUnauthorized) {
				c.setState(StateFailed)
				return err
			}
			attempts++
			log.Printf("Realtime: Kết nối thất bại (lần %d/%d): %v", attempts, c.maxAttempts, err)
			if attempts >= c.maxAttempts {
				c.setState(StateFailed)
				return fmt.Errorf("%w: %v", ErrRetryBudgetExhausted, err)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				c.setState(StateDisconnected)
				return nil
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
			continue
		}

		attempts = 0
		delay = c.initialDelay
		c.setState(StateConnected)
		log.Printf("Realtime: Đã kết nối tới %s", c.wsURL)

		err = c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			log.Println("Realtime: Đã ngắt kết nối theo yêu cầu teardown.")
			return nil
		}
		log.Printf("Realtime: Mất kết nối: %v. Đang thử kết nối lại...", err)
	}
}

// dial bắt tay với credential hiện tại — nối lại sau khi đăng nhập lại
// sẽ tự dùng token mới.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if token := c.creds.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: handshake bị từ chối (status %d)", remote.ErrUnauthorized, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Hủy ctx phải phá được ReadMessage đang block
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.apply(message)
	}
}

// apply dịch một sự kiện thành thao tác store. Payload hỏng chỉ được log
// rồi bỏ qua, không bao giờ làm sập vòng đọc. Upsert ghi đè toàn bộ các
// trường trạng thái nên việc nhận trùng một sự kiện là idempotent.
func (c *Client) apply(message []byte) {
	var event domain.RealtimeEvent
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("Realtime: Bỏ qua message không đọc được: %v", err)
		return
	}

	switch event.Event {
	case domain.EventSessionDeleted:
		var payload domain.SessionDeletedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil || payload.ID == "" {
			log.Printf("Realtime: Bỏ qua sự kiện %s thiếu id", event.Event)
			return
		}
		c.sessionStore.Remove(payload.ID)

	case domain.EventSessionCreated, domain.EventSessionUpdated,
		domain.EventPaymentReceived, domain.EventDebtAdded:
		var session domain.ParkingSession
		if err := json.Unmarshal(event.Data, &session); err != nil {
			log.Printf("Realtime: Bỏ qua sự kiện %s có payload hỏng: %v", event.Event, err)
			return
		}
		if err := c.sessionStore.Upsert(session); err != nil {
			log.Printf("Realtime: Không áp dụng được sự kiện %s cho phiên '%s': %v", event.Event, session.ID, err)
		}

	default:
		log.Printf("Realtime: Bỏ qua sự kiện không xác định '%s'", event.Event)
	}
}
