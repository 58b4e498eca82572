package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"mawakit/internal/domain/adhan"
)

// maxSoundBytes caps a single download.
const maxSoundBytes = 32 << 20

var ErrDownload = errors.New("sound download failed")

// Loader resolves a sound to its bytes: memory first, then the on-disk cache,
// then the network. Downloads are written back to disk.
type Loader struct {
	fs       afero.Fs
	dir      string
	client   *http.Client
	log      *logrus.Entry
	maxBytes int64

	mu    sync.RWMutex
	memo  map[adhan.SoundID][]byte
	group singleflight.Group
}

func NewLoader(fs afero.Fs, dir string, timeout time.Duration, log *logrus.Entry) *Loader {
	return &Loader{
		fs:       fs,
		dir:      dir,
		client:   &http.Client{Timeout: timeout},
		log:      log,
		maxBytes: maxSoundBytes,
		memo:     make(map[adhan.SoundID][]byte),
	}
}

// Path is where s is cached on disk. The extension comes from the URL so the
// decoder can be chosen from it.
func (l *Loader) Path(s adhan.Sound) string {
	ext := ".mp3"
	if u, err := url.Parse(s.URL); err == nil && path.Ext(u.Path) != "" {
		ext = path.Ext(u.Path)
	}
	return filepath.Join(l.dir, string(s.ID)+ext)
}

func (l *Loader) Load(ctx context.Context, s adhan.Sound) ([]byte, error) {
	l.mu.RLock()
	data, ok := l.memo[s.ID]
	l.mu.RUnlock()
	if ok {
		return data, nil
	}

	v, err, _ := l.group.Do(string(s.ID), func() (any, error) {
		return l.load(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (l *Loader) load(ctx context.Context, s adhan.Sound) ([]byte, error) {
	p := l.Path(s)
	data, err := afero.ReadFile(l.fs, p)
	if err == nil && len(data) > 0 {
		l.remember(s.ID, data)
		return data, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		l.log.WithError(err).WithField("path", p).Warn("Failed to read cached sound")
	}

	data, err = l.download(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
		l.log.WithError(err).WithField("dir", l.dir).Warn("Failed to create sound cache dir")
	} else if err := afero.WriteFile(l.fs, p, data, 0o644); err != nil {
		l.log.WithError(err).WithField("path", p).Warn("Failed to cache sound on disk")
	}
	l.log.WithFields(logrus.Fields{"sound": s.ID, "bytes": len(data)}).Info("Downloaded adhan sound")
	l.remember(s.ID, data)
	return data, nil
}

func (l *Loader) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrDownload, rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrDownload, rawURL, l.maxBytes)
	}
	return data, nil
}

func (l *Loader) remember(id adhan.SoundID, data []byte) {
	l.mu.Lock()
	l.memo[id] = data
	l.mu.Unlock()
}
