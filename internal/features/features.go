package features

import "sync"

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string
	Enabled     bool
	Description string
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{flags: make(map[string]*FeatureFlag)}
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled. Unknown flags are
// disabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	return exists && flag.Enabled
}

// Enable enables a feature flag.
func (m *Manager) Enable(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = true
	}
}

// Disable disables a feature flag.
func (m *Manager) Disable(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = false
	}
}

// GetAll returns a copy of all feature flags.
func (m *Manager) GetAll() map[string]*FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*FeatureFlag, len(m.flags))
	for k, v := range m.flags {
		flag := *v
		result[k] = &flag
	}
	return result
}

// Predefined feature flag names
const (
	// FeatureCacheEnabled enables/disables the feed payload cache
	FeatureCacheEnabled = "cache_enabled"
	// FeatureTraceEnabled enables/disables stage trace recording
	FeatureTraceEnabled = "trace_enabled"
	// FeatureLenientStatus restores the legacy warn-only handling of
	// non-200 feed responses
	FeatureLenientStatus = "lenient_status"
	// FeatureEventHooksEnabled enables/disables event-driven hooks
	FeatureEventHooksEnabled = "event_hooks_enabled"
)
