package board

import (
	"context"
	"errors"
	"sync"

	"github.com/treefix50/soundboard/internal/clip"
)

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
	fail   error
	puts   int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}}
}

func (m *memoryKV) Put(_ context.Context, key, value string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.values[key] = value
	m.puts++
	return nil
}

func (m *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

var errDiskFull = errors.New("disk full")

type playCall struct {
	index int
	clip  clip.Clip
}

type fakePlayer struct {
	plays  []playCall
	stops  int
	active int
	on     bool
}

func (p *fakePlayer) RequestPlay(_ context.Context, index int, c clip.Clip) error {
	p.plays = append(p.plays, playCall{index: index, clip: c})
	p.active, p.on = index, true
	return nil
}

func (p *fakePlayer) Stop() {
	p.stops++
	p.on = false
}

func (p *fakePlayer) Active() (int, bool) { return p.active, p.on }

type fakeBlobs struct {
	files []clip.AudioFile
}

func (f *fakeBlobs) PutBlob(_ context.Context, file clip.AudioFile) (string, error) {
	f.files = append(f.files, file)
	return "blob-1", nil
}
