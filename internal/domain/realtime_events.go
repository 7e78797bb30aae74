package domain

import "encoding/json"

type RealtimeEventKind string

const (
	EventSessionCreated  RealtimeEventKind = "session:created"
	EventSessionUpdated  RealtimeEventKind = "session:updated"
	EventSessionDeleted  RealtimeEventKind = "session:deleted"
	EventPaymentReceived RealtimeEventKind = "payment:received"
	EventDebtAdded       RealtimeEventKind = "debt:added"
)

// RealtimeEvent là một thông báo đẩy từ remote service trên kênh websocket.
// Data là bản ghi ParkingSession đầy đủ, riêng session:deleted chỉ cần id.
type RealtimeEvent struct {
	Event RealtimeEventKind `json:"event"`
	Data  json.RawMessage   `json:"data"`
}

// SessionDeletedPayload: payload tối thiểu của sự kiện session:deleted.
type SessionDeletedPayload struct {
	ID string `json:"id"`
}
