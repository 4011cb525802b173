package models

import "time"

// View is a saved grid query that can be replayed by name
type View struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Provider    string    `yaml:"provider,omitempty" json:"provider,omitempty"`
	Source      string    `yaml:"source" json:"source"`
	Filters     []string  `yaml:"filters,omitempty" json:"filters,omitempty"`
	Or          bool      `yaml:"or,omitempty" json:"or,omitempty"`
	OrderBy     string    `yaml:"order_by,omitempty" json:"orderBy,omitempty"`
	Descending  bool      `yaml:"descending,omitempty" json:"descending,omitempty"`
	Search      string    `yaml:"search,omitempty" json:"search,omitempty"`
	CreatedAt   time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updatedAt"`
	UsageCount  int       `yaml:"usage_count" json:"usageCount"`
	LastUsed    time.Time `yaml:"last_used,omitempty" json:"lastUsed,omitempty"`
}

// Connector returns the connector the view's filters are joined with
func (v View) Connector() FilterConnector {
	if v.Or {
		return Or
	}
	return And
}
