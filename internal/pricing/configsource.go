package pricing

import (
	"sync"

	"github.com/greenbasket/orderapi/internal/domain"
)

// ConfigSource holds the delivery pricing config shared by every pricing
// computation. Reads are concurrent; writes only happen through Update,
// and last-write-wins is acceptable since the value is eventually
// consistent.
type ConfigSource struct {
	mu      sync.RWMutex
	current domain.DeliveryConfig
}

// NewConfigSource seeds the source. A zero-value config falls back to the
// platform defaults so pricing never runs on an all-zero config.
func NewConfigSource(cfg domain.DeliveryConfig) *ConfigSource {
	if cfg == (domain.DeliveryConfig{}) {
		cfg = domain.DefaultDeliveryConfig()
	}
	return &ConfigSource{current: cfg}
}

// Current returns the last known delivery config
func (s *ConfigSource) Current() domain.DeliveryConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the config wholesale
func (s *ConfigSource) Update(cfg domain.DeliveryConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = cfg
}
