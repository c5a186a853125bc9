package protocol

type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

// VideoType tells which player backend renders a video.
type VideoType string

const (
	VideoTypeStreamed VideoType = "youtube"
	VideoTypeDirect   VideoType = "direct"
)

type Participant struct {
	ID          string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	Connected   bool   `json:"connected"`
}

func (p Participant) IsHost() bool {
	return p.Role == RoleHost
}

type Video struct {
	VideoID   string    `json:"video_id"`
	YoutubeID string    `json:"youtube_id"`
	Title     string    `json:"title"`
	Thumbnail string    `json:"thumbnail"`
	Duration  float64   `json:"duration"`
	AddedBy   string    `json:"added_by"`
	VideoType VideoType `json:"video_type"`
	URL       string    `json:"url"`
}

// SyncState is the authoritative playback fact broadcast by the server.
// Timestamp is the media position in seconds as of the frame that carried it;
// the server extrapolates it from LastUpdated (unix seconds) before sending.
type SyncState struct {
	CurrentVideoID *string   `json:"current_video_id"`
	YoutubeID      *string   `json:"youtube_id"`
	Timestamp      float64   `json:"timestamp"`
	IsPlaying      bool      `json:"is_playing"`
	LastUpdated    float64   `json:"last_updated"`
	VideoType      VideoType `json:"video_type"`
	URL            string    `json:"url"`
}

func (s SyncState) HasVideo() bool {
	return s.CurrentVideoID != nil && *s.CurrentVideoID != ""
}

// Media returns what a player has to load for this state. The zero Media means
// nothing is playing.
func (s SyncState) Media() Media {
	if !s.HasVideo() {
		return Media{}
	}

	if s.VideoType == VideoTypeDirect {
		if s.URL == "" {
			return Media{}
		}
		return Media{Type: VideoTypeDirect, Source: s.URL}
	}

	if s.YoutubeID == nil || *s.YoutubeID == "" {
		return Media{}
	}
	return Media{Type: VideoTypeStreamed, Source: *s.YoutubeID}
}

// Media identifies loadable content: a platform video id or a direct URL.
type Media struct {
	Type   VideoType
	Source string
}

func (m Media) IsZero() bool {
	return m.Source == ""
}

type RoomSettings struct {
	MaxVideosPerUser  int     `json:"max_videos_per_user"`
	SkipVoteThreshold float64 `json:"skip_vote_threshold"`
}

func DefaultSettings() RoomSettings {
	return RoomSettings{
		MaxVideosPerUser:  10,
		SkipVoteThreshold: 0.5,
	}
}

type ChatMessage struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Message     string  `json:"message"`
	Timestamp   float64 `json:"timestamp"`
	IsSystem    bool    `json:"is_system"`
}

type SkipVote struct {
	VideoID  string   `json:"video_id"`
	Votes    int      `json:"votes"`
	Required int      `json:"required"`
	Voters   []string `json:"voters"`
}

// SearchResult is one media-search hit from the REST boundary.
type SearchResult struct {
	YoutubeID string `json:"youtube_id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
}

type RoomInfo struct {
	Exists      bool   `json:"exists"`
	RoomID      string `json:"room_id,omitempty"`
	UserCount   int    `json:"user_count,omitempty"`
	QueueLength int    `json:"queue_length,omitempty"`
}

type RoomSummary struct {
	RoomID       string  `json:"room_id"`
	HostName     string  `json:"host_name"`
	UserCount    int     `json:"user_count"`
	QueueLength  int     `json:"queue_length"`
	CurrentVideo *string `json:"current_video"`
}
