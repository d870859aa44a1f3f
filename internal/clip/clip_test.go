package clip

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":             "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?feature=share&v=abc123&t=4": "abc123",
		"https://youtu.be/xyz789?t=10":                             "xyz789",
		"youtu.be/short#frag":                                      "short",
	}
	for link, want := range cases {
		got, err := ExtractVideoID(link)
		require.NoError(t, err, link)
		assert.Equal(t, want, got, link)
	}

	_, err := ExtractVideoID("https://example.com/video")
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewRemote("abc", 0, 1, "").Validate())
	assert.ErrorIs(t, NewRemote("abc", 5, 5, "").Validate(), ErrInvalidRange)
	assert.ErrorIs(t, NewRemote("abc", 6, 5, "").Validate(), ErrInvalidRange)
	assert.ErrorIs(t, NewRemote("", 0, 5, "").Validate(), ErrMissingVideoID)
	assert.NoError(t, NewLocal("1", "boom").Validate())
	assert.ErrorIs(t, NewLocal("", "boom").Validate(), ErrMissingAudioID)
	assert.ErrorIs(t, Clip{Kind: "tape"}.Validate(), ErrUnknownKind)
}

func TestMarshalShapes(t *testing.T) {
	remote, err := json.Marshal(NewRemote("abc", 1, 4, "intro"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"videoId":"abc","start":1,"end":4,"label":"intro","volume":100}`, string(remote))

	local, err := json.Marshal(Clip{Kind: KindLocal, AudioID: "a-1", Volume: 40})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"local","audioId":"a-1","volume":40}`, string(local))
}

func TestUnmarshalLenientRecords(t *testing.T) {
	var clips []Clip
	data := `[
		{"videoId":"abc","start":"1:00","end":75,"label":"a"},
		{"type":"local","audioId":3,"volume":250},
		{"videoId":"def","start":0,"end":2,"volume":30}
	]`
	require.NoError(t, json.Unmarshal([]byte(data), &clips))
	require.Len(t, clips, 3)

	assert.Equal(t, Clip{Kind: KindRemote, VideoID: "abc", Start: 60, End: 75, Label: "a", Volume: 100}, clips[0])
	assert.Equal(t, Clip{Kind: KindLocal, AudioID: "3", Volume: 100}, clips[1])
	assert.Equal(t, 30, clips[2].Volume)
}

func TestUnmarshalRejectsBadRecords(t *testing.T) {
	var c Clip
	assert.Error(t, json.Unmarshal([]byte(`{"videoId":"abc","start":"x","end":3}`), &c))
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"type":"cassette"}`), &c), ErrUnknownKind)
	assert.Error(t, json.Unmarshal([]byte(`{"type":"local","audioId":1.5}`), &c))
}

func TestSegmentKeyAndDisplayName(t *testing.T) {
	key, ok := NewRemote("abc", 1, 2, "").SegmentKey()
	assert.True(t, ok)
	assert.Equal(t, "abc|1|2", key)

	_, ok = NewLocal("1", "x").SegmentKey()
	assert.False(t, ok)

	assert.Equal(t, "Sound 3", NewRemote("abc", 1, 2, "").DisplayName(2))
	assert.Equal(t, "boom (file)", NewLocal("1", "boom").DisplayName(0))
	assert.Equal(t, "airhorn", DefaultLabel("/tmp/airhorn.mp3"))
}
