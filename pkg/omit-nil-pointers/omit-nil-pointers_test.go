package omitnilpointers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOmitNilPointers(t *testing.T) {
	n := 3
	var nilInt *int

	got := OmitNilPointers(map[string]any{
		"a": &n,
		"b": nilInt,
		"c": nil,
		"d": "x",
	})

	assert.Equal(t, map[string]any{"a": 3, "d": "x"}, got)
}

func TestFromStruct(t *testing.T) {
	type patch struct {
		MaxVideos *int     `json:"max_videos_per_user,omitempty"`
		Threshold *float64 `json:"skip_vote_threshold,omitempty"`
		Ignored   string   `json:"-"`
		hidden    int
	}

	max := 5
	got := FromStruct(&patch{MaxVideos: &max, Ignored: "x", hidden: 1})
	assert.Equal(t, map[string]any{"max_videos_per_user": int64(5)}, got)

	assert.Empty(t, FromStruct((*patch)(nil)))
	assert.Empty(t, FromStruct(42))
}

func TestFromStructFlattensNamedTypes(t *testing.T) {
	type state string
	type status struct {
		State    state   `json:"state"`
		Position float64 `json:"position"`
		Host     bool    `json:"host"`
	}

	got := FromStruct(status{State: "playing", Position: 1.5, Host: true})
	assert.Equal(t, map[string]any{"state": "playing", "position": 1.5, "host": true}, got)
}
