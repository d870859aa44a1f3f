package board

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treefix50/soundboard/internal/clip"
)

func seededRegistry(t *testing.T, clips ...clip.Clip) (*Registry, *memoryKV) {
	t.Helper()
	kv := newMemoryKV()
	r := NewRegistry(kv, 365, nil)
	for _, c := range clips {
		_, err := r.Add(context.Background(), c)
		require.NoError(t, err)
	}
	return r, kv
}

func TestAddRejectsBadRange(t *testing.T) {
	r, kv := seededRegistry(t)

	_, err := r.Add(context.Background(), clip.NewRemote("abc", 10, 10, ""))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, clip.ErrInvalidRange)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, kv.puts)
}

func TestAddPersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	r, kv := seededRegistry(t, clip.NewRemote("abc", 0, 3, "a"))

	raw, ok, _ := kv.Get(ctx, ClipsKey)
	require.True(t, ok)
	assert.JSONEq(t, `[{"videoId":"abc","start":0,"end":3,"label":"a","volume":100}]`, raw)

	require.NoError(t, r.SetVolume(ctx, 0, 40))
	raw, _, _ = kv.Get(ctx, ClipsKey)
	assert.Contains(t, raw, `"volume":40`)
	assert.Equal(t, 2, kv.puts)
}

func TestAddReturnsIndex(t *testing.T) {
	ctx := context.Background()
	r, _ := seededRegistry(t, clip.NewRemote("a", 0, 1, ""), clip.NewRemote("b", 0, 1, ""))

	index, err := r.Add(ctx, clip.NewLocal("blob-1", "horn"))
	require.NoError(t, err)
	assert.Equal(t, 2, index)

	got, ok := r.Get(index)
	require.True(t, ok)
	assert.Equal(t, "blob-1", got.AudioID)
}

func TestRemoveShiftsIndexes(t *testing.T) {
	ctx := context.Background()
	a := clip.NewRemote("a", 0, 1, "")
	b := clip.NewRemote("b", 0, 1, "")
	c := clip.NewRemote("c", 0, 1, "")
	r, _ := seededRegistry(t, a, b, c)

	removed, err := r.Remove(ctx, 0)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []clip.Clip{b, c}, r.Clips())

	removed, err = r.Remove(ctx, 7)
	require.NoError(t, err)
	assert.False(t, removed)
	removed, err = r.Remove(ctx, -1)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 2, r.Len())
}

func TestSetVolumeClamps(t *testing.T) {
	ctx := context.Background()
	r, _ := seededRegistry(t, clip.NewRemote("a", 0, 1, ""))

	require.NoError(t, r.SetVolume(ctx, 0, 180))
	got, _ := r.Get(0)
	assert.Equal(t, 100, got.Volume)

	require.NoError(t, r.SetVolume(ctx, 0, -5))
	got, _ = r.Get(0)
	assert.Equal(t, 0, got.Volume)

	assert.ErrorIs(t, r.SetVolume(ctx, 3, 50), ErrIndexOutOfRange)
}

func TestPersistFailureLeavesRegistryUnchanged(t *testing.T) {
	ctx := context.Background()
	r, kv := seededRegistry(t, clip.NewRemote("a", 0, 1, ""))
	kv.fail = errDiskFull

	_, err := r.Add(ctx, clip.NewRemote("b", 0, 1, ""))
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 1, r.Len())

	_, err = r.Remove(ctx, 0)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 1, r.Len())

	assert.ErrorIs(t, r.SetVolume(ctx, 0, 10), errDiskFull)
	got, _ := r.Get(0)
	assert.Equal(t, 100, got.Volume)
}

func TestLoadTreatsCorruptDataAsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	kv.values[ClipsKey] = `{not json`

	r := NewRegistry(kv, 365, nil)
	require.NoError(t, r.Load(ctx))
	assert.Equal(t, 0, r.Len())

	kv.values[ClipsKey] = `[{"videoId":"abc","start":1,"end":4},{"type":"local","audioId":7,"label":"boom"}]`
	require.NoError(t, r.Load(ctx))
	assert.Equal(t, []clip.Clip{
		clip.NewRemote("abc", 1, 4, ""),
		clip.NewLocal("7", "boom"),
	}, r.Clips())
}

func TestOnChangeReceivesSnapshot(t *testing.T) {
	ctx := context.Background()
	r, _ := seededRegistry(t)

	var seen [][]clip.Clip
	r.OnChange(func(clips []clip.Clip) { seen = append(seen, clips) })

	_, err := r.Add(ctx, clip.NewRemote("a", 0, 1, ""))
	require.NoError(t, err)
	_, err = r.Remove(ctx, 5)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Len(t, seen[0], 1)
}

func TestExportImportReplaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	original := []clip.Clip{
		clip.NewRemote("abc", 1, 4, "intro"),
		{Kind: clip.KindLocal, AudioID: "f00", Label: "boom", Volume: 35},
		clip.NewRemote("def", 0, 2, ""),
	}
	src, _ := seededRegistry(t, original...)

	data, err := src.Export()
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	dst, _ := seededRegistry(t, clip.NewRemote("zzz", 0, 9, "old"))
	n, err := dst.Import(ctx, data, ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, original, dst.Clips())
}

func TestImportMergeSkipsDuplicateSegments(t *testing.T) {
	ctx := context.Background()
	r, _ := seededRegistry(t, clip.NewRemote("abc", 1, 4, "mine"))

	payload := `[
		{"videoId":"abc","start":1,"end":4,"label":"theirs"},
		{"videoId":"new","start":0,"end":2}
	]`
	added, err := r.Import(ctx, []byte(payload), ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 2, r.Len())

	first, _ := r.Get(0)
	assert.Equal(t, "mine", first.Label)
}

func TestImportMergeAlwaysAppendsLocalClips(t *testing.T) {
	ctx := context.Background()
	r, _ := seededRegistry(t, clip.NewLocal("1", "boom"))

	added, err := r.Import(ctx, []byte(`[{"type":"local","audioId":"1","label":"boom"}]`), ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 2, r.Len())
}

func TestImportMergeKeepsRepeatsWithinPayload(t *testing.T) {
	ctx := context.Background()
	r, _ := seededRegistry(t, clip.NewRemote("a", 0, 1, ""))

	payload := `[{"videoId":"x","start":0,"end":1},{"videoId":"x","start":0,"end":1},{"videoId":"a","start":0,"end":1}]`
	added, err := r.Import(ctx, []byte(payload), ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 3, r.Len())
}

func TestImportRejectsMalformedPayloadAtomically(t *testing.T) {
	ctx := context.Background()
	r, kv := seededRegistry(t, clip.NewRemote("abc", 1, 4, ""))
	puts := kv.puts

	for _, payload := range []string{
		`{"videoId":"abc"}`,
		`not json`,
		`null`,
		`[{"videoId":"ok","start":0,"end":1},{"videoId":"bad","start":5,"end":1}]`,
	} {
		_, err := r.Import(ctx, []byte(payload), ImportMerge)
		assert.ErrorIs(t, err, ErrInvalidImport, payload)
		_, err = r.Import(ctx, []byte(payload), ImportReplace)
		assert.ErrorIs(t, err, ErrInvalidImport, payload)
	}
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, puts, kv.puts)
}

func TestParseImportPolicy(t *testing.T) {
	p, err := ParseImportPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ImportMerge, p)

	p, err = ParseImportPolicy("Replace")
	require.NoError(t, err)
	assert.Equal(t, ImportReplace, p)
	assert.Equal(t, "replace", p.String())

	_, err = ParseImportPolicy("append")
	assert.Error(t, err)
}
