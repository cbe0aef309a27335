package mux

import "sync"

type Handler interface {
	HandleMessage(Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Message)

func (f HandlerFunc) HandleMessage(m Message) { f(m) }

type routeKey struct {
	object    NetworkID
	component ComponentID
}

// Router delivers each message to the single handler registered for its pair.
type Router struct {
	mu       sync.RWMutex
	handlers map[routeKey]*route
}

type route struct{ h Handler }

func NewRouter() *Router {
	return &Router{handlers: make(map[routeKey]*route)}
}

// Register installs h for the pair, replacing any previous handler.
// The returned func removes it again.
func (r *Router) Register(object NetworkID, component ComponentID, h Handler) func() {
	key := routeKey{object, component}
	rt := &route{h: h}
	r.mu.Lock()
	r.handlers[key] = rt
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.handlers[key] == rt {
			delete(r.handlers, key)
		}
	}
}

// Dispatch reports false when no handler is registered for m.
func (r *Router) Dispatch(m Message) bool {
	r.mu.RLock()
	rt, ok := r.handlers[routeKey{m.Object, m.Component}]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	rt.h.HandleMessage(m)
	return true
}
