package features

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Unlimited marks a feature with no quota for a tier. A limit of 0 means the
// feature is not available to that tier at all.
const Unlimited int64 = -1

type FeatureConfig struct {
	Name   string           `json:"name"`
	Limits map[string]int64 `json:"limits"`
}

type FeaturesFile struct {
	Features []FeatureConfig `json:"features"`
}

// Registry maps feature name -> tier -> per-period limit. Limits are
// re-read on every gate check, so runtime updates take effect immediately.
type Registry struct {
	mu       sync.RWMutex
	features map[string]map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		features: make(map[string]map[string]int64),
	}
}

// Default returns the built-in feature limit table, used when no
// features.json is present.
func Default() *Registry {
	r := NewRegistry()
	r.Set("lesson_browse", map[string]int64{"free": Unlimited, "plus": Unlimited, "max": Unlimited})
	r.Set("practice_attempts", map[string]int64{"free": 5, "plus": 100, "max": Unlimited})
	r.Set("video_hd", map[string]int64{"free": 0, "plus": 50, "max": Unlimited})
	r.Set("ai_tutor", map[string]int64{"free": 0, "plus": 0, "max": 40})
	return r
}

func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read features config: %w", err)
	}

	var file FeaturesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse features config: %w", err)
	}

	registry := NewRegistry()
	for _, f := range file.Features {
		registry.Set(f.Name, f.Limits)
	}
	return registry, nil
}

func (r *Registry) Set(feature string, limits map[string]int64) {
	cp := make(map[string]int64, len(limits))
	for tier, limit := range limits {
		cp[tier] = limit
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features[feature] = cp
}

// Limit returns the per-period limit for a feature and tier. Unknown
// features and tiers resolve to 0 (not available).
func (r *Registry) Limit(feature, tier string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limits, ok := r.features[feature]
	if !ok {
		return 0
	}
	return limits[tier]
}

func (r *Registry) Known(feature string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.features[feature]
	return ok
}

func (r *Registry) All() []FeatureConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]FeatureConfig, 0, len(r.features))
	for name, limits := range r.features {
		cp := make(map[string]int64, len(limits))
		for tier, limit := range limits {
			cp[tier] = limit
		}
		result = append(result, FeatureConfig{Name: name, Limits: cp})
	}
	return result
}
