package room

import (
	"github.com/sharetube/synctube/internal/protocol"
	"golang.org/x/exp/slices"
)

// Reduce folds one server event into the snapshot and returns the next
// snapshot. It has no side effects. Events other than room_state are ignored
// until the room has been bootstrapped, and unknown events are ignored.
func Reduce(s Snapshot, event protocol.Event) Snapshot {
	if rs, ok := event.(protocol.RoomState); ok {
		return fromRoomState(s, rs)
	}

	if !s.Bootstrapped() {
		return s
	}

	switch ev := event.(type) {
	case protocol.UserJoined:
		s.Participants = upsertParticipant(s.Participants, ev.User)

	case protocol.UserLeft:
		s.Participants = markDisconnected(s.Participants, ev.UserID)

	case protocol.QueueUpdated:
		s.Queue = slices.Clone(ev.Queue)
		if ev.Action == protocol.QueueActionAdvance {
			s.SkipVote = nil
		}

	case protocol.Sync:
		s.Sync = cloneSync(ev.Sync)
		s.ServerTime = ev.ServerTime

	case protocol.Chat:
		s.ChatHistory = appendChat(s.ChatHistory, ev.ChatMessage)

	case protocol.SkipVoteUpdate:
		vote := ev.SkipVote
		vote.Voters = dedupe(vote.Voters)
		s.SkipVote = &vote

	case protocol.HostChanged:
		s.Participants = reassignHost(s.Participants, ev.NewHostID, ev.NewHostName)
		if s.LocalID == ev.NewHostID {
			s.LocalRole = protocol.RoleHost
		} else {
			s.LocalRole = protocol.RoleViewer
		}

	case protocol.SettingsUpdated:
		s.Settings = ev.Settings
	}

	return s
}

// WithConnected records transport connectivity.
func WithConnected(s Snapshot, connected bool) Snapshot {
	s.Connected = connected
	return s
}

func fromRoomState(prev Snapshot, rs protocol.RoomState) Snapshot {
	next := Snapshot{
		RoomID:       rs.RoomID,
		Participants: slices.Clone(rs.Users),
		Queue:        slices.Clone(rs.Queue),
		Sync:         cloneSync(rs.Sync),
		Settings:     rs.Settings,
		ChatHistory:  appendChat(nil, rs.ChatHistory...),
		SkipVote:     prev.SkipVote,
		LocalID:      rs.YourUserID,
		LocalRole:    rs.YourRole,
		Connected:    true,
		ServerTime:   rs.ServerTime,
	}
	if next.LocalRole == "" {
		next.LocalRole = protocol.RoleViewer
	}
	// a vote for a video that is no longer current does not carry over
	if next.SkipVote != nil && (!next.Sync.HasVideo() || *next.Sync.CurrentVideoID != next.SkipVote.VideoID) {
		next.SkipVote = nil
	}

	return next
}

func upsertParticipant(list []protocol.Participant, p protocol.Participant) []protocol.Participant {
	next := make([]protocol.Participant, 0, len(list)+1)
	for _, existing := range list {
		if existing.ID != p.ID {
			next = append(next, existing)
		}
	}

	return append(next, p)
}

func markDisconnected(list []protocol.Participant, id string) []protocol.Participant {
	next := slices.Clone(list)
	for i := range next {
		if next[i].ID == id {
			next[i].Connected = false
		}
	}

	return next
}

func reassignHost(list []protocol.Participant, hostID, hostName string) []protocol.Participant {
	next := slices.Clone(list)
	found := false
	for i := range next {
		if next[i].ID == hostID {
			next[i].Role = protocol.RoleHost
			found = true
		} else {
			next[i].Role = protocol.RoleViewer
		}
	}

	if !found {
		next = append(next, protocol.Participant{
			ID:          hostID,
			DisplayName: hostName,
			Role:        protocol.RoleHost,
			Connected:   true,
		})
	}

	return next
}

// appendChat returns a new slice holding the most recent ChatHistoryLimit messages.
func appendChat(history []protocol.ChatMessage, msgs ...protocol.ChatMessage) []protocol.ChatMessage {
	total := len(history) + len(msgs)
	skip := 0
	if total > ChatHistoryLimit {
		skip = total - ChatHistoryLimit
	}

	next := make([]protocol.ChatMessage, 0, total-skip)
	for _, m := range history {
		if skip > 0 {
			skip--
			continue
		}
		next = append(next, m)
	}
	for _, m := range msgs {
		if skip > 0 {
			skip--
			continue
		}
		next = append(next, m)
	}

	return next
}

func cloneSync(s protocol.SyncState) protocol.SyncState {
	if s.CurrentVideoID != nil {
		id := *s.CurrentVideoID
		s.CurrentVideoID = &id
	}
	if s.YoutubeID != nil {
		yt := *s.YoutubeID
		s.YoutubeID = &yt
	}

	return s
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}
