// Package breaker guards shared external collaborators against tight
// retry loops. Each collaborator gets its own breaker: consecutive
// failures past a threshold open it for a cooldown window, during
// which callers skip that collaborator instead of hammering it.
package breaker

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Config holds breaker thresholds shared by all registered breakers.
type Config struct {
	// ErrorThreshold is the number of consecutive failures that opens
	// the breaker.
	ErrorThreshold int

	// Cooldown is how long an open breaker rejects calls before
	// closing again.
	Cooldown time.Duration
}

// DefaultConfig returns the breaker parameters used in production.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold: 5,
		Cooldown:       60 * time.Second,
	}
}

// Validate checks config for invalid values.
func (c Config) Validate() error {
	if c.ErrorThreshold <= 0 {
		return errors.New("error threshold must be positive")
	}
	if c.Cooldown <= 0 {
		return errors.New("cooldown must be positive")
	}
	return nil
}

// State is a point-in-time view of one breaker, for status reporting.
type State struct {
	Name        string `json:"name"`
	Open        bool   `json:"open"`
	Consecutive int    `json:"consecutiveErrors"`
	Trips       int    `json:"trips"`
	OpenUntilMs int64  `json:"openUntilMs,omitempty"`
}

// Breaker tracks consecutive failures for one collaborator.
type Breaker struct {
	name   string
	config Config

	mu          sync.Mutex
	consecutive int
	openUntil   time.Time
	trips       int

	now func() time.Time
}

// NewBreaker creates a closed breaker for the named collaborator.
func NewBreaker(name string, config Config) *Breaker {
	return &Breaker{
		name:   name,
		config: config,
		now:    time.Now,
	}
}

// Allow reports whether a call to the collaborator may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().After(b.openUntil)
}

// RecordFailure counts a failed call. Reaching the threshold opens the
// breaker for the cooldown window and resets the failure count, so a
// fresh run of failures is required to re-open it after expiry.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive++
	if b.consecutive >= b.config.ErrorThreshold {
		b.openUntil = b.now().Add(b.config.Cooldown)
		b.consecutive = 0
		b.trips++
	}
}

// RecordSuccess resets the consecutive failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
}

// State returns a snapshot of the breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := State{
		Name:        b.name,
		Consecutive: b.consecutive,
		Trips:       b.trips,
	}
	if b.now().Before(b.openUntil) {
		state.Open = true
		state.OpenUntilMs = b.openUntil.UnixMilli()
	}
	return state
}

// Registry hands out one breaker per collaborator name.
type Registry struct {
	config Config

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry. Breakers are created lazily
// on first use with the registry's config.
func NewRegistry(config Config) *Registry {
	return &Registry{
		config:   config,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the named collaborator, creating it on
// first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, r.config)
	r.breakers[name] = b
	return b
}

// States returns snapshots of all registered breakers sorted by name.
func (r *Registry) States() []State {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	states := make([]State, 0, len(breakers))
	for _, b := range breakers {
		states = append(states, b.State())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states
}
