package restapi

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// HTTPVerb enumerates supported HTTP operations.
type HTTPVerb int

const (
	// Unknown represents an unspecified HTTP verb.
	Unknown HTTPVerb = iota
	// GET lists or retrieves resources.
	GET
	// DELETE removes resources.
	DELETE
	// POST creates resources.
	POST
	// PUT replaces resources.
	PUT
	// PATCH partially updates resources.
	PATCH
)

// RestMethod describes a REST route handler.
type RestMethod struct {
	Verb    HTTPVerb
	Path    string
	Handler func(c *gin.Context)
}

// RegisterMethod builds a RestMethod and registers it using Register.
func (s *Server) RegisterMethod(verb HTTPVerb, path string, h func(c *gin.Context)) error {
	m := RestMethod{
		Verb:    verb,
		Path:    path,
		Handler: h,
	}
	return s.Register(m)
}

// Register adds a RestMethod to the server, preventing duplicates.
// Methods must be registered before Engine is called.
func (s *Server) Register(m RestMethod) error {
	if m.Verb <= Unknown || m.Verb > PATCH {
		return fmt.Errorf("can't add %s, HTTP verb %d not supported", m.Path, m.Verb)
	}
	key := fmt.Sprintf("%d_%s", m.Verb, m.Path)
	if _, exists := s.methods[key]; exists {
		return fmt.Errorf("can't add %s, an existing handler in REST method map exists", key)
	}
	s.methods[key] = m
	s.order = append(s.order, key)
	return nil
}

// RestMethods returns all registered RestMethod entries in registration order.
func (s *Server) RestMethods() []RestMethod {
	out := make([]RestMethod, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.methods[k])
	}
	return out
}
