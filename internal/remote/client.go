package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/tvthien-ktmt/Parking-Website-Admin/internal/domain"
)

var ErrUnauthorized = errors.New("phiên đăng nhập hết hạn hoặc không có quyền")
var ErrNetwork = errors.New("lỗi kết nối mạng")

// APIError là lỗi do remote service trả về; message được giữ nguyên văn
// để surface lên người dùng.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Envelope là khung trả về chung của remote service.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client là bề mặt của remote parking service mà gateway sử dụng.
type Client interface {
	Login(ctx context.Context, username, password string) error
	ListSessions(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error)
	GetSession(ctx context.Context, id string) (*domain.ParkingSession, error)
	CreateSession(ctx context.Context, dto domain.VehicleCheckInDTO) (*domain.ParkingSession, error)
	UpdateSession(ctx context.Context, id string, dto domain.UpdateSessionDTO) (*domain.ParkingSession, error)
	CheckoutSession(ctx context.Context, id string) (*domain.ParkingSession, error)
	DeleteSession(ctx context.Context, id string) error
	SearchByPlate(ctx context.Context, plate string) ([]domain.ParkingSession, error)
	VehicleHistory(ctx context.Context, plate string) ([]domain.ParkingSession, error)
	ConfirmPayment(ctx context.Context, sessionID string) (*domain.ParkingSession, error)
	MarkUnpaid(ctx context.Context, sessionID string) (*domain.ParkingSession, error)
	CollectDebt(ctx context.Context, sessionID string) (*domain.ParkingSession, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	creds      *Credentials
}

func NewHTTPClient(baseURL string, timeout time.Duration, creds *Credentials) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
	}
}

type loginData struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	env, err := c.do(ctx, http.MethodPost, "/auth/login", nil, body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return ErrInvalidCredentials
		}
		return err
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("lỗi đọc kết quả đăng nhập: %w", err)
	}
	if data.Token == "" {
		return fmt.Errorf("đăng nhập không trả về token")
	}
	c.creds.SetToken(data.Token)
	log.Printf("Remote: Đăng nhập thành công với tài khoản '%s'", username)
	return nil
}

func (c *HTTPClient) ListSessions(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	if filter.Date != "" {
		params.Set("date", filter.Date)
	}
	return c.sessionList(ctx, http.MethodGet, "/parking/sessions", params, nil)
}

func (c *HTTPClient) GetSession(ctx context.Context, id string) (*domain.ParkingSession, error) {
	return c.sessionOne(ctx, http.MethodGet, "/parking/sessions/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) CreateSession(ctx context.Context, dto domain.VehicleCheckInDTO) (*domain.ParkingSession, error) {
	return c.sessionOne(ctx, http.MethodPost, "/parking/sessions", dto)
}

func (c *HTTPClient) UpdateSession(ctx context.Context, id string, dto domain.UpdateSessionDTO) (*domain.ParkingSession, error) {
	return c.sessionOne(ctx, http.MethodPut, "/parking/sessions/"+url.PathEscape(id), dto)
}

func (c *HTTPClient) CheckoutSession(ctx context.Context, id string) (*domain.ParkingSession, error) {
	return c.sessionOne(ctx, http.MethodPost, "/parking/sessions/"+url.PathEscape(id)+"/checkout", nil)
}

func (c *HTTPClient) DeleteSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/parking/sessions/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *HTTPClient) SearchByPlate(ctx context.Context, plate string) ([]domain.ParkingSession, error) {
	params := url.Values{}
	params.Set("plate", plate)
	return c.sessionList(ctx, http.MethodGet, "/parking/sessions/search", params, nil)
}

func (c *HTTPClient) VehicleHistory(ctx context.Context, plate string) ([]domain.ParkingSession, error) {
	return c.sessionList(ctx, http.MethodGet, "/parking/vehicles/"+url.PathEscape(plate)+"/history", nil, nil)
}

func (c *HTTPClient) ConfirmPayment(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	return c.sessionOne(ctx, http.MethodPost, "/payment/confirm", map[string]string{"session_id": sessionID})
}

func (c *HTTPClient) MarkUnpaid(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	return c.sessionOne(ctx, http.MethodPost, "/payment/mark-unpaid", map[string]string{"session_id": sessionID})
}

func (c *HTTPClient) CollectDebt(ctx context.Context, sessionID string) (*domain.ParkingSession, error) {
	return c.sessionOne(ctx, http.MethodPost, "/payment/collect-debt", map[string]string{"session_id": sessionID})
}

func (c *HTTPClient) sessionOne(ctx context.Context, method, path string, body interface{}) (*domain.ParkingSession, error) {
	env, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	var session domain.ParkingSession
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return nil, fmt.Errorf("lỗi đọc bản ghi phiên đỗ xe: %w", err)
	}
	return &session, nil
}

func (c *HTTPClient) sessionList(ctx context.Context, method, path string, params url.Values, body interface{}) ([]domain.ParkingSession, error) {
	env, err := c.do(ctx, method, path, params, body)
	if err != nil {
		return nil, err
	}
	var sessions []domain.ParkingSession
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &sessions); err != nil {
			return nil, fmt.Errorf("lỗi đọc danh sách phiên đỗ xe: %w", err)
		}
	}
	return sessions, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, body interface{}) (*Envelope, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("lỗi marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var env Envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("lỗi đọc response từ remote service (status %d): %w", resp.StatusCode, err)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Lỗi xác thực: không retry, caller phải kích hoạt đăng nhập lại
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, env.Message)
	case resp.StatusCode >= 400:
		message := env.Message
		if message == "" {
			message = fmt.Sprintf("remote service trả về lỗi %d", resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	// Body rỗng (DELETE trả 204) coi như thành công; envelope có mặt
	// mà success=false thì luôn là lỗi, kể cả khi thiếu message.
	if len(raw) > 0 && !env.Success {
		message := env.Message
		if message == "" {
			message = "remote service báo thao tác không thành công"
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	return &env, nil
}
