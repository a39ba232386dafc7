package clips

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Project is a source video and the clips selected from it
type Project struct {
	Source    string    `yaml:"source"`
	Clips     []*Clip   `yaml:"clips"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// NewProject creates an empty project for source
func NewProject(source string) *Project {
	now := time.Now()
	return &Project{
		Source:    source,
		Clips:     make([]*Clip, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FromManager builds a project holding the manager's clips
func FromManager(source string, m *Manager) *Project {
	p := NewProject(source)
	p.Clips = append(p.Clips, m.All()...)
	return p
}

// Manager returns a manager preloaded with the project's clips
func (p *Project) Manager() *Manager {
	m := NewManager()
	for _, c := range p.Clips {
		m.Add(c)
	}
	return m
}

// Save writes the project to path as yaml
func (p *Project) Save(path string) error {
	p.UpdatedAt = time.Now()

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	return nil
}

// LoadProject reads a project file and validates every clip
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}

	if p.Source == "" {
		return nil, fmt.Errorf("project %s has no source video", path)
	}
	if !filepath.IsAbs(p.Source) {
		p.Source = filepath.Join(filepath.Dir(path), p.Source)
	}

	for i, c := range p.Clips {
		if err := validate(c.Start, c.End); err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
	}
	return &p, nil
}
