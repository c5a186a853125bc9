package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sharetube/synctube/pkg/validator"
)

type CommandType string

// Client -> server command kinds.
const (
	CommandJoin           CommandType = "join"
	CommandAddVideo       CommandType = "add_video"
	CommandRemoveVideo    CommandType = "remove_video"
	CommandReorderQueue   CommandType = "reorder_queue"
	CommandSkipVote       CommandType = "skip_vote"
	CommandChatMessage    CommandType = "chat_message"
	CommandSyncReport     CommandType = "sync_report"
	CommandPlay           CommandType = "play"
	CommandPause          CommandType = "pause"
	CommandSeek           CommandType = "seek"
	CommandVideoEnded     CommandType = "video_ended"
	CommandUpdateSettings CommandType = "update_settings"
)

const (
	MaxDisplayNameLength = 30
	MaxChatLength        = 500
)

type Command interface {
	CommandType() CommandType
}

type Join struct {
	DisplayName string `json:"display_name" validate:"required,max=30"`
}

type AddVideo struct {
	URL string `json:"url" validate:"required"`
}

type RemoveVideo struct {
	VideoID string `json:"video_id" validate:"required"`
}

type ReorderQueue struct {
	VideoIDs []string `json:"video_ids" validate:"required,dive,required"`
}

type SkipVoteCommand struct {
	VideoID string `json:"video_id" validate:"required"`
}

type SendChat struct {
	Message string `json:"message" validate:"required,max=500"`
}

// SyncReport is the periodic self-report of local playback. State is a coarse
// play state such as "playing" or "paused".
type SyncReport struct {
	Timestamp float64 `json:"timestamp" validate:"gte=0"`
	State     string  `json:"state" validate:"required"`
}

// Play has no payload; the server stamps its own time.
type Play struct{}

type Pause struct {
	Timestamp float64 `json:"timestamp" validate:"gte=0"`
}

type Seek struct {
	Timestamp float64 `json:"timestamp" validate:"gte=0"`
}

type VideoEnded struct{}

// SettingsPatch is a partial RoomSettings; nil fields are left unchanged.
type SettingsPatch struct {
	MaxVideosPerUser  *int     `json:"max_videos_per_user,omitempty" validate:"omitempty,gte=1,lte=50"`
	SkipVoteThreshold *float64 `json:"skip_vote_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
}

type UpdateSettings struct {
	Settings SettingsPatch `json:"settings"`
}

func (Join) CommandType() CommandType            { return CommandJoin }
func (AddVideo) CommandType() CommandType        { return CommandAddVideo }
func (RemoveVideo) CommandType() CommandType     { return CommandRemoveVideo }
func (ReorderQueue) CommandType() CommandType    { return CommandReorderQueue }
func (SkipVoteCommand) CommandType() CommandType { return CommandSkipVote }
func (SendChat) CommandType() CommandType        { return CommandChatMessage }
func (SyncReport) CommandType() CommandType      { return CommandSyncReport }
func (Play) CommandType() CommandType            { return CommandPlay }
func (Pause) CommandType() CommandType           { return CommandPause }
func (Seek) CommandType() CommandType            { return CommandSeek }
func (VideoEnded) CommandType() CommandType      { return CommandVideoEnded }
func (UpdateSettings) CommandType() CommandType  { return CommandUpdateSettings }

var validate = validator.NewValidator()

// Validate checks the command against the limits the server enforces.
func Validate(cmd Command) error {
	return validate.Struct(cmd)
}

// Encode validates cmd and renders it as a flat JSON frame with a "type" field.
func Encode(cmd Command) ([]byte, error) {
	if err := Validate(cmd); err != nil {
		return nil, err
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", cmd.CommandType(), err)
	}

	typeField, err := json.Marshal(string(cmd.CommandType()))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(typeField) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(typeField)

	inner := bytes.TrimSpace(body)
	inner = inner[1 : len(inner)-1]
	if len(bytes.TrimSpace(inner)) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}
