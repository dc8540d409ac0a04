package httpclient

import (
	"sync"
)

// DetailsHook completes request details after name, tag and label are set.
// values holds request values over client values.
type DetailsHook func(d Details, values map[string]any)

// Profile holds client defaults and an optional shared transport. Clients
// created from a profile copy its settings at creation time.
type Profile struct {
	name      string
	formatter LogFormatter
	hook      DetailsHook

	mu       sync.RWMutex
	settings Settings
	global   *transport
}

type ProfileOption func(*Profile)

// WithFormatter replaces the default log formatter.
func WithFormatter(f LogFormatter) ProfileOption {
	return func(p *Profile) { p.formatter = f }
}

// WithDetailsHook installs a hook completing request details.
func WithDetailsHook(h DetailsHook) ProfileOption {
	return func(p *Profile) { p.hook = h }
}

// WithDefaults applies options to the initial settings.
func WithDefaults(opts ...Option) ProfileOption {
	return func(p *Profile) {
		for _, opt := range opts {
			opt(&p.settings)
		}
	}
}

// NewProfile creates a profile. name labels its metrics.
func NewProfile(name string, opts ...ProfileOption) *Profile {
	p := &Profile{
		name:      name,
		formatter: DefaultFormatter{},
		settings:  DefaultSettings(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the metrics label of the profile.
func (p *Profile) Name() string {
	return p.name
}

// Configure changes the profile defaults for clients created afterwards. An
// open global transport keeps the proxy and certificate it was opened with.
func (p *Profile) Configure(opts ...Option) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, opt := range opts {
		opt(&p.settings)
	}
}

// Settings returns a copy of the profile defaults.
func (p *Profile) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.clone()
}

// OpenGlobal opens the shared transport if it is not open yet.
func (p *Profile) OpenGlobal() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.global != nil {
		return nil
	}
	t, err := newTransport(p.name, p.settings)
	if err != nil {
		return err
	}
	p.global = t
	return nil
}

// CloseGlobal releases the shared transport.
func (p *Profile) CloseGlobal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.global != nil {
		p.global.close()
		p.global = nil
	}
}

func (p *Profile) globalTransport() *transport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.global
}

// New creates a client from the profile defaults overridden by opts.
func (p *Profile) New(opts ...Option) *Client {
	s := p.Settings()
	for _, opt := range opts {
		opt(&s)
	}
	return &Client{profile: p, settings: s}
}

var defaultProfile = NewProfile("http")

// Default returns the package profile used by Configure, OpenGlobal,
// CloseGlobal and New.
func Default() *Profile {
	return defaultProfile
}

func Configure(opts ...Option) {
	defaultProfile.Configure(opts...)
}

func OpenGlobal() error {
	return defaultProfile.OpenGlobal()
}

func CloseGlobal() {
	defaultProfile.CloseGlobal()
}

func New(opts ...Option) *Client {
	return defaultProfile.New(opts...)
}
