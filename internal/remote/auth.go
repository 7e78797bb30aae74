package remote

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredentials = errors.New("tên đăng nhập hoặc mật khẩu không chính xác")
var ErrTokenExpired = errors.New("phiên đăng nhập hết hạn, cần đăng nhập lại")

// Credentials giữ access token hiện tại cho cả REST client và kênh realtime.
// Reconnect luôn đọc token tại thời điểm bắt tay, nên sau khi đăng nhập lại
// các kết nối mới tự dùng token mới.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

func NewCredentials() *Credentials {
	return &Credentials{}
}

func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Credentials) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Expired đọc claim exp của token mà không verify chữ ký (server mới là
// bên verify); dùng để phát hiện cần đăng nhập lại trước khi kết nối.
func (c *Credentials) Expired(now time.Time) bool {
	token := c.Token()
	if token == "" {
		return true
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false // token không có exp thì coi như còn hạn
	}
	return now.After(exp.Time)
}
