package memimg

import (
	"context"
	"image"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// FoodSprite is drawn on the food cell.
	FoodSprite = "apple.png"
	// SnakeSprite is used for the window icon.
	SnakeSprite = "snake.png"
)

// ErrAssetLoad is the cause of every error returned when a sprite cannot be read.
var ErrAssetLoad = errors.New("memimg: asset load failed")

// IconSizes are the edge lengths generated from the snake sprite for window icons.
var IconSizes = []int{16, 32, 48, 64}

type scaleKey struct {
	name string
	size int
}

// Store keeps decoded sprites and their scaled variants in memory.
type Store struct {
	dir    string
	mu     sync.RWMutex
	images map[string]image.Image
	scaled map[scaleKey]image.Image
}

// Load reads both sprites from dir. A missing or undecodable sprite is fatal.
func Load(dir string) (*Store, error) {
	s := &Store{
		dir:    dir,
		images: make(map[string]image.Image),
		scaled: make(map[scaleKey]image.Image),
	}
	for _, name := range []string{FoodSprite, SnakeSprite} {
		img, err := LoadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		s.images[name] = img
	}
	return s, nil
}

// LoadImage decodes the image at path.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrAssetLoad, "%s: %v", path, err)
	}
	return img, nil
}

// Get returns the sprite with the given file name.
func (s *Store) Get(name string) (image.Image, bool) {
	s.mu.RLock()
	img, exists := s.images[name]
	s.mu.RUnlock()
	return img, exists
}

// Scaled returns the sprite resized to size×size, cached per size.
func (s *Store) Scaled(name string, size int) (image.Image, bool) {
	key := scaleKey{name: name, size: size}
	s.mu.RLock()
	img, exists := s.scaled[key]
	s.mu.RUnlock()
	if exists {
		return img, true
	}

	src, exists := s.Get(name)
	if !exists || size <= 0 {
		return nil, false
	}
	img = imaging.Resize(src, size, size, imaging.Lanczos)

	s.mu.Lock()
	s.scaled[key] = img
	s.mu.Unlock()
	return img, true
}

// Icons returns the snake sprite at every IconSizes edge length.
func (s *Store) Icons() []image.Image {
	icons := make([]image.Image, 0, len(IconSizes))
	for _, size := range IconSizes {
		if img, ok := s.Scaled(SnakeSprite, size); ok {
			icons = append(icons, img)
		}
	}
	return icons
}

// Reload re-reads one sprite from disk and drops its scaled variants.
// On failure the previous image stays in place.
func (s *Store) Reload(name string) error {
	img, err := LoadImage(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.images[name] = img
	for k := range s.scaled {
		if k.name == name {
			delete(s.scaled, k)
		}
	}
	s.mu.Unlock()
	return nil
}

// Watch reloads sprites when their files are written, until ctx is done.
// onReload, if set, is called with the name of every sprite that changed.
func (s *Store) Watch(ctx context.Context, onReload func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "memimg: create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return errors.Wrapf(err, "memimg: watch %s", s.dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if _, known := s.Get(name); !known {
				continue
			}
			if err := s.Reload(name); err != nil {
				log.WithError(err).WithField("sprite", name).Warn("sprite reload failed, keeping previous image")
				continue
			}
			log.WithField("sprite", name).Info("sprite reloaded")
			if onReload != nil {
				onReload(name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("asset watcher error")
		}
	}
}
