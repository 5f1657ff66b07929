// Package prefs persists user preferences as a JSON document in the
// user config directory.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const prefsFile = "preferences.json"

// Defaults for preferences that need a usable value before the user has
// ever set one.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llava"
)

// CategoryDisplay is the persisted display state of one box category.
type CategoryDisplay struct {
	Visible bool    `json:"visible"`
	Opacity float64 `json:"opacity"`
}

// document is the on-disk shape. Fields are the full set of settings
// the application stores; unknown keys in an old file are dropped on
// the next save.
type document struct {
	LastDataset string                     `json:"last_dataset,omitempty"`
	Zoom        float64                    `json:"zoom,omitempty"`
	OllamaHost  string                     `json:"ollama_host,omitempty"`
	OllamaModel string                     `json:"ollama_model,omitempty"`
	Categories  map[string]CategoryDisplay `json:"categories,omitempty"`
}

// Prefs holds the session's preferences. All accessors are safe for
// concurrent use; Save must be called to persist changes.
type Prefs struct {
	mu   sync.RWMutex
	path string
	doc  document
}

// Load reads preferences from ~/.config/box-labeler/preferences.json.
// A missing or unreadable file yields empty preferences.
func Load() *Prefs {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return loadFrom(filepath.Join(configDir, "box-labeler", prefsFile))
}

func loadFrom(path string) *Prefs {
	p := &Prefs{path: path}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &p.doc)
	}
	if p.doc.Categories == nil {
		p.doc.Categories = make(map[string]CategoryDisplay)
	}
	return p
}

// Save writes preferences to disk, creating the config directory if
// needed.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.doc, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// LastDataset returns the dataset directory from the previous session,
// or "" if none was recorded.
func (p *Prefs) LastDataset() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.LastDataset
}

// SetLastDataset records the open dataset directory.
func (p *Prefs) SetLastDataset(path string) {
	p.mu.Lock()
	p.doc.LastDataset = path
	p.mu.Unlock()
}

// Zoom returns the saved zoom level, or 0 if none was recorded.
func (p *Prefs) Zoom() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Zoom
}

// SetZoom records the canvas zoom level.
func (p *Prefs) SetZoom(zoom float64) {
	p.mu.Lock()
	p.doc.Zoom = zoom
	p.mu.Unlock()
}

// OllamaHost returns the configured ollama host, falling back to the
// default local install.
func (p *Prefs) OllamaHost() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.OllamaHost == "" {
		return DefaultOllamaHost
	}
	return p.doc.OllamaHost
}

// SetOllamaHost records the ollama host.
func (p *Prefs) SetOllamaHost(host string) {
	p.mu.Lock()
	p.doc.OllamaHost = host
	p.mu.Unlock()
}

// OllamaModel returns the configured vision model name.
func (p *Prefs) OllamaModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.OllamaModel == "" {
		return DefaultOllamaModel
	}
	return p.doc.OllamaModel
}

// SetOllamaModel records the vision model name.
func (p *Prefs) SetOllamaModel(model string) {
	p.mu.Lock()
	p.doc.OllamaModel = model
	p.mu.Unlock()
}

// Category returns the saved display state for a category name, and
// whether one was recorded.
func (p *Prefs) Category(name string) (CategoryDisplay, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.doc.Categories[name]
	return d, ok
}

// SetCategory records the display state for a category name.
func (p *Prefs) SetCategory(name string, d CategoryDisplay) {
	p.mu.Lock()
	p.doc.Categories[name] = d
	p.mu.Unlock()
}
