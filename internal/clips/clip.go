package clips

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRange is returned when a clip's end is not after its start
var ErrInvalidRange = errors.New("clip end must be after start")

// Clip represents a selected segment of the source video
type Clip struct {
	ID    uuid.UUID     `yaml:"id"`
	Start time.Duration `yaml:"start"`
	End   time.Duration `yaml:"end"`
	Label string        `yaml:"label,omitempty"`
}

// New creates a clip covering [start, end)
func New(start, end time.Duration, label string) (*Clip, error) {
	if err := validate(start, end); err != nil {
		return nil, err
	}
	return &Clip{ID: uuid.New(), Start: start, End: end, Label: label}, nil
}

// Duration returns the clip length
func (c *Clip) Duration() time.Duration {
	return c.End - c.Start
}

// String implements fmt.Stringer
func (c *Clip) String() string {
	if c.Label != "" {
		return fmt.Sprintf("%s [%s-%s]", c.Label, c.Start, c.End)
	}
	return fmt.Sprintf("[%s-%s]", c.Start, c.End)
}

// Trim returns a copy of clip covering [start, end), keeping its ID
func Trim(clip *Clip, start, end time.Duration) (*Clip, error) {
	if err := validate(start, end); err != nil {
		return nil, err
	}
	trimmed := *clip
	trimmed.Start = start
	trimmed.End = end
	return &trimmed, nil
}

func validate(start, end time.Duration) error {
	if start < 0 {
		return fmt.Errorf("%w: negative start %s", ErrInvalidRange, start)
	}
	if end <= start {
		return fmt.Errorf("%w: %s-%s", ErrInvalidRange, start, end)
	}
	return nil
}

// Manager handles clip operations
type Manager struct {
	clips []*Clip
}

// NewManager creates a new clip manager
func NewManager() *Manager {
	return &Manager{
		clips: make([]*Clip, 0),
	}
}

// Add adds a clip to the manager
func (m *Manager) Add(clip *Clip) {
	m.clips = append(m.clips, clip)
}

// Get retrieves a clip by ID
func (m *Manager) Get(id uuid.UUID) *Clip {
	for _, clip := range m.clips {
		if clip.ID == id {
			return clip
		}
	}
	return nil
}

// Remove deletes a clip by ID and reports whether it was present
func (m *Manager) Remove(id uuid.UUID) bool {
	for i, clip := range m.clips {
		if clip.ID == id {
			m.clips = append(m.clips[:i], m.clips[i+1:]...)
			return true
		}
	}
	return false
}

// All returns all clips
func (m *Manager) All() []*Clip {
	return m.clips
}

// Len returns the number of clips
func (m *Manager) Len() int {
	return len(m.clips)
}
