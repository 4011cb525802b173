// Package views persists saved grid queries in a YAML file.
package views

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rebeliceyang/lazygrid/internal/filter"
	"github.com/rebeliceyang/lazygrid/internal/models"
)

// Manager manages saved views
type Manager struct {
	path  string
	views []models.View
}

// NewManager creates a manager backed by views.yaml in dir
func NewManager(dir string) (*Manager, error) {
	m := &Manager{
		path:  filepath.Join(dir, "views.yaml"),
		views: []models.View{},
	}

	if _, err := os.Stat(m.path); err == nil {
		if err := m.Load(); err != nil {
			return nil, fmt.Errorf("failed to load views: %w", err)
		}
	}
	return m, nil
}

// Path returns the backing file
func (m *Manager) Path() string {
	return m.path
}

// Load loads views from the YAML file
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read views file: %w", err)
	}

	var views []models.View
	if err := yaml.Unmarshal(data, &views); err != nil {
		return fmt.Errorf("failed to parse views: %w", err)
	}
	if views == nil {
		views = []models.View{}
	}
	m.views = views
	return nil
}

// Save writes views to the YAML file
func (m *Manager) Save() error {
	data, err := yaml.Marshal(m.views)
	if err != nil {
		return fmt.Errorf("failed to marshal views: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write views file: %w", err)
	}
	return nil
}

// Add validates and stores a new view. Names are unique ignoring case.
func (m *Manager) Add(v models.View) (*models.View, error) {
	if err := m.validate(&v, ""); err != nil {
		return nil, err
	}

	now := time.Now()
	v.ID = uuid.New().String()
	v.CreatedAt = now
	v.UpdatedAt = now
	v.UsageCount = 0
	v.LastUsed = time.Time{}

	m.views = append(m.views, v)
	if err := m.Save(); err != nil {
		m.views = m.views[:len(m.views)-1]
		return nil, fmt.Errorf("failed to save view: %w", err)
	}
	return &v, nil
}

// Update replaces the query of the view with the given ID, keeping its usage statistics
func (m *Manager) Update(id string, v models.View) error {
	if err := m.validate(&v, id); err != nil {
		return err
	}

	for i, existing := range m.views {
		if existing.ID != id {
			continue
		}
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
		v.UsageCount = existing.UsageCount
		v.LastUsed = existing.LastUsed
		v.UpdatedAt = time.Now()
		m.views[i] = v
		if err := m.Save(); err != nil {
			m.views[i] = existing
			return fmt.Errorf("failed to save view: %w", err)
		}
		return nil
	}
	return fmt.Errorf("view with ID '%s' was not found", id)
}

// Delete removes a view by name
func (m *Manager) Delete(name string) error {
	for i, v := range m.views {
		if strings.EqualFold(v.Name, name) {
			m.views = append(m.views[:i], m.views[i+1:]...)
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save views after deletion: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("view '%s' was not found", name)
}

// Get returns a view by name, ignoring case
func (m *Manager) Get(name string) (*models.View, error) {
	for _, v := range m.views {
		if strings.EqualFold(v.Name, strings.TrimSpace(name)) {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("view '%s' was not found", name)
}

// GetAll returns all views sorted by name
func (m *Manager) GetAll() []models.View {
	out := append([]models.View(nil), m.views...)
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// RecordUsage bumps the usage statistics of a view
func (m *Manager) RecordUsage(id string) error {
	for i, v := range m.views {
		if v.ID == id {
			m.views[i].UsageCount++
			m.views[i].LastUsed = time.Now()
			if err := m.Save(); err != nil {
				return fmt.Errorf("failed to save usage statistics: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("view with ID '%s' was not found", id)
}

// GetMostUsed returns the most frequently used views
func (m *Manager) GetMostUsed(limit int) []models.View {
	sorted := append([]models.View(nil), m.views...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UsageCount > sorted[j].UsageCount
	})
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

// Descriptor parses the view's filter expressions
func Descriptor(v models.View) (*models.FilterDescriptor, error) {
	return filter.ParseExpressions(v.Connector(), v.Filters...)
}

func (m *Manager) validate(v *models.View, selfID string) error {
	v.Name = strings.TrimSpace(v.Name)
	v.Source = strings.TrimSpace(v.Source)
	v.Description = strings.TrimSpace(v.Description)

	if v.Name == "" {
		return fmt.Errorf("view name cannot be empty")
	}
	if v.Source == "" {
		return fmt.Errorf("view source cannot be empty")
	}
	if _, err := Descriptor(*v); err != nil {
		return fmt.Errorf("invalid view filter: %w", err)
	}

	for _, existing := range m.views {
		if existing.ID != selfID && strings.EqualFold(existing.Name, v.Name) {
			return fmt.Errorf("a view with the name '%s' already exists (names are case-insensitive)", v.Name)
		}
	}
	return nil
}

// Schema describes views for export
func Schema() *models.Schema[models.View] {
	return models.NewSchema(
		models.Field("name", func(v models.View) string { return v.Name }, nil),
		models.Field("provider", func(v models.View) string { return v.Provider }, nil),
		models.Field("source", func(v models.View) string { return v.Source }, nil),
		models.Field("filters", func(v models.View) string { return strings.Join(v.Filters, "; ") }, nil),
		models.Field("order_by", func(v models.View) string { return v.OrderBy }, nil),
		models.Field("descending", func(v models.View) bool { return v.Descending }, nil),
		models.Field("search", func(v models.View) string { return v.Search }, nil),
		models.Field("usage_count", func(v models.View) int { return v.UsageCount }, nil),
	)
}
