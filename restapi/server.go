// Package restapi exposes a read-only admin API over a datasource registry:
// which datasources exist, which DB handles each one has cached, and a ping
// through the routing path of any DB.
package restapi

import (
	"github.com/gin-gonic/gin"

	"github.com/sharedcode/multiredis/registry"
)

// BasePath prefixes every registered method.
const BasePath = "/api/v1"

// Server holds the registry and the REST methods served over it.
type Server struct {
	registry *registry.Registry
	methods  map[string]RestMethod
	order    []string
}

// NewServer returns a Server with the datasource methods registered.
func NewServer(reg *registry.Registry) *Server {
	s := &Server{
		registry: reg,
		methods:  make(map[string]RestMethod),
	}
	s.mustRegister(
		RestMethod{Verb: GET, Path: "/datasources", Handler: s.GetDatasources},
		RestMethod{Verb: GET, Path: "/datasources/:name", Handler: s.GetDatasourceByName},
		RestMethod{Verb: GET, Path: "/datasources/:name/databases/:db/ping", Handler: s.PingDatabase},
		RestMethod{Verb: GET, Path: "/version", Handler: GetVersion},
	)
	return s
}

// mustRegister registers built-in methods; a failure is a programming error.
func (s *Server) mustRegister(methods ...RestMethod) {
	for _, m := range methods {
		if err := s.Register(m); err != nil {
			panic(err)
		}
	}
}

// Engine builds the gin engine serving every registered method under BasePath.
func (s *Server) Engine() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group(BasePath)
	{
		for _, rm := range s.RestMethods() {
			switch rm.Verb {
			case GET:
				v1.GET(rm.Path, rm.Handler)
			case DELETE:
				v1.DELETE(rm.Path, rm.Handler)
			case POST:
				v1.POST(rm.Path, rm.Handler)
			case PUT:
				v1.PUT(rm.Path, rm.Handler)
			case PATCH:
				v1.PATCH(rm.Path, rm.Handler)
			}
		}
	}
	return router
}
