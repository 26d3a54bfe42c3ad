package alarm

import (
	"sync"

	"github.com/hearthware/stovetop/pkg/log"
)

// MemoryPlayer records playback requests without producing sound. It
// is the default player for headless operation and the assertion
// surface in tests.
type MemoryPlayer struct {
	mu sync.Mutex

	// FailAssets makes Play return an error, forcing the tone fallback.
	FailAssets bool

	Plays    []string // asset URLs requested
	PCMPlays int      // synthesized tone playbacks
	active   int
}

type memoryHandle struct {
	p    *MemoryPlayer
	once sync.Once
}

func (h *memoryHandle) Stop() {
	h.once.Do(func() {
		h.p.mu.Lock()
		h.p.active--
		h.p.mu.Unlock()
	})
}

func (p *MemoryPlayer) Play(url string, opts PlayOptions) (PlaybackHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailAssets {
		return nil, errAssetUnavailable
	}
	p.Plays = append(p.Plays, url)
	p.active++
	return &memoryHandle{p: p}, nil
}

func (p *MemoryPlayer) PlayPCM(data []byte, opts PlayOptions) (PlaybackHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PCMPlays++
	p.active++
	return &memoryHandle{p: p}, nil
}

// Active returns the number of live playbacks.
func (p *MemoryPlayer) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// LogNotifier writes notifications to the log stream, the default
// surface when no system notification API is wired.
type LogNotifier struct{}

func (LogNotifier) RequestPermission() bool {
	return true
}

func (LogNotifier) Show(title, body, tag string) error {
	logger := log.WithComponent("alarm")
	logger.Info().
		Str("title", title).
		Str("body", body).
		Str("tag", tag).
		Msg("notification")
	return nil
}
