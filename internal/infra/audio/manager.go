package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"mawakit/internal/domain/adhan"
)

// ErrLocked means the output could not be brought to the running state.
var ErrLocked = errors.New("audio output is locked")

// Manager owns the output and enforces that playback only happens once the
// output has been unlocked. Concurrent unlock attempts share one result.
type Manager struct {
	out    Output
	loader *Loader
	log    *logrus.Entry

	unlockGroup singleflight.Group

	mu       sync.Mutex
	unlocked bool
	cancel   context.CancelFunc
	gen      uint64

	// interrupt cancels the priming of an unlock in flight.
	interrupt context.CancelFunc
}

func NewManager(out Output, loader *Loader, log *logrus.Entry) *Manager {
	return &Manager{out: out, loader: loader, log: log}
}

// IsReady reports whether Play can start without unlocking first.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	unlocked := m.unlocked
	m.mu.Unlock()
	return unlocked && m.out.State() == StateRunning
}

// Unlock resumes the output and primes it with a silent frame and a silent
// clip. Being interrupted by a Play request still counts as success; ctx
// ending first does not.
func (m *Manager) Unlock(ctx context.Context) error {
	if m.IsReady() {
		return nil
	}
	_, err, _ := m.unlockGroup.Do("unlock", func() (any, error) {
		return nil, m.unlock(ctx)
	})
	return err
}

func (m *Manager) unlock(ctx context.Context) error {
	if err := m.out.Resume(ctx); err != nil {
		m.log.WithError(err).Error("Failed to unlock audio")
		return fmt.Errorf("failed to resume audio output: %w", err)
	}

	primeCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.interrupt = cancel
	m.mu.Unlock()
	defer func() {
		cancel()
		m.mu.Lock()
		m.interrupt = nil
		m.mu.Unlock()
	}()

	if err := m.out.Play(primeCtx, beep.Silence(1)); err != nil {
		return m.primeFailed(ctx, err)
	}

	clip, _, err := primer()
	if err != nil {
		m.log.WithError(err).Debug("Silent clip unavailable, skipping")
	} else {
		defer clip.Close()
		if err := m.out.Play(primeCtx, clip); err != nil {
			return m.primeFailed(ctx, err)
		}
	}

	m.mu.Lock()
	m.unlocked = true
	m.mu.Unlock()
	m.log.Info("Audio output unlocked")
	return nil
}

// primeFailed maps a priming error. Only a cancellation that did not come
// from ctx itself was caused by interruptPriming.
func (m *Manager) primeFailed(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		m.log.Info("Unlock interrupted by a play request")
		return nil
	}
	m.log.WithError(err).Error("Failed to unlock audio")
	return fmt.Errorf("failed to prime audio output: %w", err)
}

func (m *Manager) interruptPriming() {
	m.mu.Lock()
	if m.interrupt != nil {
		m.interrupt()
	}
	m.mu.Unlock()
}

// Play plays id to completion, replacing whatever is playing. Unknown ids fall
// back to the default sound. Being replaced or stopped is not an error.
func (m *Manager) Play(ctx context.Context, id adhan.SoundID) error {
	m.syncState()
	if !m.IsReady() {
		m.interruptPriming()
		if err := m.Unlock(ctx); err != nil {
			m.log.Warn("Cannot play, audio output locked")
			return fmt.Errorf("%w: %w", ErrLocked, err)
		}
		if m.out.State() != StateRunning {
			return ErrLocked
		}
	}

	sound, found := adhan.Lookup(id)
	if !found {
		m.log.WithField("sound", id).Warn("Unknown sound, using default")
	}
	data, err := m.loader.Load(ctx, sound)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", sound.ID, err)
	}
	streamer, format, err := Decode(m.loader.Path(sound), data)
	if err != nil {
		return err
	}
	defer streamer.Close()

	playCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	defer func() {
		cancel()
		m.mu.Lock()
		if m.gen == gen {
			m.cancel = nil
		}
		m.mu.Unlock()
	}()

	m.log.WithFields(logrus.Fields{"sound": sound.ID, "name": sound.Name}).Info("Playing adhan")
	err = m.out.Play(playCtx, beep.Resample(4, format.SampleRate, SampleRate, streamer))
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			m.log.WithField("sound", sound.ID).Info("Playback replaced or stopped")
			return nil
		}
		return fmt.Errorf("failed to play %s: %w", sound.ID, err)
	}
	return nil
}

// Stop cuts the current playback short.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
}

// Close stops playback and releases the output. The manager stays locked
// afterwards.
func (m *Manager) Close() error {
	m.Stop()
	m.mu.Lock()
	m.unlocked = false
	m.mu.Unlock()
	return m.out.Close()
}

// syncState drops the unlocked flag once the output has been closed under us.
func (m *Manager) syncState() {
	if m.out.State() != StateClosed {
		return
	}
	m.mu.Lock()
	m.unlocked = false
	m.mu.Unlock()
}
