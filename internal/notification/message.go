package notification

// Notification types written to the inbox.
const (
	TypeRoomAllocated   = "room_allocated"
	TypeRoomReallocated = "room_reallocated"
	TypeLeaveRouted     = "leave_request_assigned"
)

// Message is one notification for one user. It becomes an inbox row and,
// when push is configured, a web push to each of the user's browsers.
type Message struct {
	UserID int64          `json:"-"`
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Body   string         `json:"message"`
	Data   map[string]any `json:"data,omitempty"`
}
