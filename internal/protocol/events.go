package protocol

type EventType string

// Server -> client event kinds.
const (
	EventRoomState       EventType = "room_state"
	EventUserJoined      EventType = "user_joined"
	EventUserLeft        EventType = "user_left"
	EventQueueUpdated    EventType = "queue_updated"
	EventSync            EventType = "sync"
	EventChatMessage     EventType = "chat_message"
	EventSkipVoteUpdate  EventType = "skip_vote_update"
	EventHostChanged     EventType = "host_changed"
	EventSettingsUpdated EventType = "settings_updated"
	EventError           EventType = "error"
)

type QueueAction string

const (
	QueueActionAdd     QueueAction = "add"
	QueueActionRemove  QueueAction = "remove"
	QueueActionReorder QueueAction = "reorder"
	// QueueActionAdvance means the current video changed because it ended or was skipped.
	QueueActionAdvance QueueAction = "advance"
)

type Event interface {
	EventType() EventType
}

type RoomState struct {
	RoomID      string        `json:"room_id"`
	Users       []Participant `json:"users"`
	Queue       []Video       `json:"queue"`
	Sync        SyncState     `json:"sync"`
	Settings    RoomSettings  `json:"settings"`
	ChatHistory []ChatMessage `json:"chat_history"`
	YourUserID  string        `json:"your_user_id"`
	YourRole    Role          `json:"your_role"`
	ServerTime  float64       `json:"server_time"`
}

type UserJoined struct {
	User Participant `json:"user"`
}

type UserLeft struct {
	UserID string `json:"user_id"`
}

type QueueUpdated struct {
	Queue  []Video     `json:"queue"`
	Action QueueAction `json:"action"`
	Video  *Video      `json:"video,omitempty"`
}

type Sync struct {
	Sync       SyncState `json:"sync"`
	ServerTime float64   `json:"server_time"`
}

// Chat carries the message fields flat in the frame.
type Chat struct {
	ChatMessage
}

type SkipVoteUpdate struct {
	SkipVote
}

type HostChanged struct {
	NewHostID   string `json:"new_host_id"`
	NewHostName string `json:"new_host_name"`
}

type SettingsUpdated struct {
	Settings RoomSettings `json:"settings"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (RoomState) EventType() EventType       { return EventRoomState }
func (UserJoined) EventType() EventType      { return EventUserJoined }
func (UserLeft) EventType() EventType        { return EventUserLeft }
func (QueueUpdated) EventType() EventType    { return EventQueueUpdated }
func (Sync) EventType() EventType            { return EventSync }
func (Chat) EventType() EventType            { return EventChatMessage }
func (SkipVoteUpdate) EventType() EventType  { return EventSkipVoteUpdate }
func (HostChanged) EventType() EventType     { return EventHostChanged }
func (SettingsUpdated) EventType() EventType { return EventSettingsUpdated }
func (Error) EventType() EventType           { return EventError }
