package room

import (
	"github.com/sharetube/synctube/internal/protocol"
	"golang.org/x/exp/slices"
)

// ChatHistoryLimit matches the server-side retention.
const ChatHistoryLimit = 100

// Snapshot is an immutable view of the room. Reduce never mutates a Snapshot in
// place; holders must treat the slices as read-only.
type Snapshot struct {
	RoomID       string                 `json:"room_id"`
	Participants []protocol.Participant `json:"users"`
	Queue        []protocol.Video       `json:"queue"`
	Sync         protocol.SyncState     `json:"sync"`
	Settings     protocol.RoomSettings  `json:"settings"`
	ChatHistory  []protocol.ChatMessage `json:"chat_history"`
	SkipVote     *protocol.SkipVote     `json:"skip_vote"`
	LocalID      string                 `json:"your_user_id"`
	LocalRole    protocol.Role          `json:"your_role"`
	Connected    bool                   `json:"connected"`

	// ServerTime is the server clock of the last room_state or sync event.
	ServerTime float64 `json:"server_time"`
}

func Initial() Snapshot {
	return Snapshot{
		Settings:  protocol.DefaultSettings(),
		LocalRole: protocol.RoleViewer,
	}
}

// Bootstrapped reports whether a room_state has been applied.
func (s Snapshot) Bootstrapped() bool {
	return s.RoomID != ""
}

func (s Snapshot) IsHost() bool {
	return s.LocalRole == protocol.RoleHost
}

func (s Snapshot) Participant(id string) (protocol.Participant, bool) {
	i := slices.IndexFunc(s.Participants, func(p protocol.Participant) bool { return p.ID == id })
	if i < 0 {
		return protocol.Participant{}, false
	}

	return s.Participants[i], true
}

func (s Snapshot) Host() (protocol.Participant, bool) {
	i := slices.IndexFunc(s.Participants, protocol.Participant.IsHost)
	if i < 0 {
		return protocol.Participant{}, false
	}

	return s.Participants[i], true
}

func (s Snapshot) ConnectedCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.Connected {
			n++
		}
	}

	return n
}

// CurrentVideo returns the queue entry the sync state points at.
func (s Snapshot) CurrentVideo() (protocol.Video, bool) {
	if !s.Sync.HasVideo() {
		return protocol.Video{}, false
	}

	i := slices.IndexFunc(s.Queue, func(v protocol.Video) bool { return v.VideoID == *s.Sync.CurrentVideoID })
	if i < 0 {
		return protocol.Video{}, false
	}

	return s.Queue[i], true
}

// HasVoted reports whether the server has confirmed the local participant's
// skip vote for the current video.
func (s Snapshot) HasVoted() bool {
	if s.SkipVote == nil || !s.Sync.HasVideo() || s.SkipVote.VideoID != *s.Sync.CurrentVideoID {
		return false
	}

	return slices.Contains(s.SkipVote.Voters, s.LocalID)
}
