package agent

// Registry maps capability names to handlers. It is populated once at
// startup and read-only afterwards; no runtime registration.
type Registry struct {
	handlers    map[string]Handler
	defaultName string
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under its own name.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Name()] = h
}

// RegisterDefault adds a handler and marks it as the default for verified
// traffic that names no capability.
func (r *Registry) RegisterDefault(h Handler) {
	r.Register(h)
	r.defaultName = h.Name()
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Default returns the default task handler, if one was registered.
func (r *Registry) Default() (Handler, bool) {
	if r.defaultName == "" {
		return nil, false
	}
	return r.Get(r.defaultName)
}
