package alarm

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/hearthware/stovetop/pkg/log"
	"github.com/hearthware/stovetop/pkg/types"
)

// PlayOptions controls audio playback for one alarm.
type PlayOptions struct {
	Loop   bool
	Volume float64 // 0..1
}

// PlaybackHandle is a stoppable in-progress playback.
type PlaybackHandle interface {
	Stop()
}

// Player is the audio playback primitive. Implementations live outside
// this subsystem (platform audio, embedded beeper); absence of a player
// simply mutes alarms.
type Player interface {
	// Play starts playback of an audio asset by URL.
	Play(url string, opts PlayOptions) (PlaybackHandle, error)

	// PlayPCM starts playback of raw WAV bytes, the synthesized
	// fallback path when no asset is playable.
	PlayPCM(data []byte, opts PlayOptions) (PlaybackHandle, error)
}

// Notifier is the system notification surface.
type Notifier interface {
	RequestPermission() bool
	Show(title, body, tag string) error
}

// Manager drives audio and notifications for expired timers. One
// playback handle exists per alarming timer; Trigger is idempotent per
// timer until Stop releases it.
type Manager struct {
	player   Player
	notifier Notifier
	soundURL string

	mu      sync.Mutex
	handles map[string]PlaybackHandle

	logger zerolog.Logger
}

// Options configures a Manager. Both collaborators are optional and
// capability-probed at each call site.
type Options struct {
	Player   Player
	Notifier Notifier
	SoundURL string
}

// NewManager creates an alarm manager
func NewManager(opts Options) *Manager {
	return &Manager{
		player:   opts.Player,
		notifier: opts.Notifier,
		soundURL: opts.SoundURL,
		handles:  make(map[string]PlaybackHandle),
		logger:   log.WithComponent("alarm"),
	}
}

// Trigger starts looped alarm audio and shows a notification for the
// expired timer. A second trigger for the same id is a no-op while the
// first playback is live.
func (m *Manager) Trigger(t *types.Timer) {
	if t == nil {
		return
	}

	m.mu.Lock()
	if _, live := m.handles[t.ID]; live {
		m.mu.Unlock()
		return
	}
	handle := m.startPlayback(t.ID)
	if handle != nil {
		m.handles[t.ID] = handle
	}
	m.mu.Unlock()

	m.showNotification(t)
	m.logger.Info().Str("timer_id", t.ID).Str("label", t.Label).Msg("alarm triggered")
}

// startPlayback tries the configured asset first, then the synthesized
// tone. Returns nil when no audio capability exists.
func (m *Manager) startPlayback(timerID string) PlaybackHandle {
	if m.player == nil {
		return nil
	}
	opts := PlayOptions{Loop: true, Volume: 1}

	if m.soundURL != "" {
		h, err := m.player.Play(m.soundURL, opts)
		if err == nil {
			return h
		}
		m.logger.Warn().Err(err).Str("timer_id", timerID).Msg("alarm asset failed, falling back to tone")
	}

	h, err := m.player.PlayPCM(ToneWAV(), opts)
	if err != nil {
		m.logger.Warn().Err(err).Str("timer_id", timerID).Msg("synthesized tone failed, alarm is silent")
		return nil
	}
	return h
}

func (m *Manager) showNotification(t *types.Timer) {
	if m.notifier == nil {
		return
	}
	if !m.notifier.RequestPermission() {
		return
	}
	if err := m.notifier.Show("Timer finished", t.Label, t.ID); err != nil {
		m.logger.Warn().Err(err).Str("timer_id", t.ID).Msg("notification failed")
	}
}

// Stop halts playback for one timer. No-op on unknown ids.
func (m *Manager) Stop(id string) {
	m.mu.Lock()
	h, ok := m.handles[id]
	if ok {
		delete(m.handles, id)
	}
	m.mu.Unlock()

	if ok {
		h.Stop()
	}
}

// ReleaseAll stops every live playback. Idempotent.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]PlaybackHandle)
	m.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

// Live reports whether a playback handle exists for the timer.
func (m *Manager) Live(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handles[id]
	return ok
}
