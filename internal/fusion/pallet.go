package fusion

import (
	"fmt"
	"sync"
)

// PalletRegistry holds the configured pallet profiles and the operator's
// current selection. The selection is read once per trigger, at record
// creation, and never re-read mid-pipeline.
type PalletRegistry struct {
	mu       sync.Mutex
	profiles []PalletProfile
	selected int
}

// NewPalletRegistry creates a registry seeded with the identity "no pallet"
// profile (always index 0, selected by default) plus the given profiles.
func NewPalletRegistry(profiles ...PalletProfile) *PalletRegistry {
	all := append([]PalletProfile{NoPallet()}, profiles...)
	return &PalletRegistry{profiles: all}
}

// Profiles returns a copy of all known profiles.
func (p *PalletRegistry) Profiles() []PalletProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PalletProfile, len(p.profiles))
	copy(out, p.profiles)
	return out
}

// Selected returns the operator's current profile.
func (p *PalletRegistry) Selected() PalletProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profiles[p.selected]
}

// Select switches the active profile by name.
func (p *PalletRegistry) Select(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, prof := range p.profiles {
		if prof.Name == name {
			p.selected = i
			return nil
		}
	}
	return fmt.Errorf("unknown pallet profile %q", name)
}
