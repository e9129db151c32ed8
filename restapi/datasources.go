package restapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sharedcode/multiredis"
	"github.com/sharedcode/multiredis/helper"
	"github.com/sharedcode/multiredis/router"
)

// DatasourceInfo is the JSON view of one registered datasource.
type DatasourceInfo struct {
	Name         string `json:"name"`
	Mode         string `json:"mode"`
	DefaultIndex int    `json:"default_index"`
	Primary      bool   `json:"primary"`
	Databases    []int  `json:"databases"`
}

// PingResult is returned by PingDatabase.
type PingResult struct {
	Datasource string `json:"datasource"`
	DB         int    `json:"db"`
	Handle     string `json:"handle"`
	Status     string `json:"status"`
}

func (s *Server) info(h *helper.Helper) DatasourceInfo {
	return DatasourceInfo{
		Name:         h.Name(),
		Mode:         h.Mode().String(),
		DefaultIndex: h.Default().DB,
		Primary:      h.Name() == s.registry.Primary(),
		Databases:    h.Databases(),
	}
}

// GetDatasources godoc
// @Summary GetDatasources returns every registered datasource
// @Description GetDatasources responds with the datasources and their cached DB handles as JSON.
// @Tags Datasources
// @Produce json
// @Success 200 {object} []DatasourceInfo
// @Router /datasources [get]
func (s *Server) GetDatasources(c *gin.Context) {
	names := s.registry.Names()
	out := make([]DatasourceInfo, 0, len(names))
	for _, name := range names {
		h, err := s.registry.Lookup(name)
		if err != nil {
			writeError(c, err)
			return
		}
		out = append(out, s.info(h))
	}
	c.IndentedJSON(http.StatusOK, out)
}

// GetDatasourceByName godoc
// @Summary GetDatasourceByName returns the datasource having its name matching the name parameter.
// @Tags Datasources
// @Produce json
// @Param name path string true "Name of the datasource, or default"
// @Failure 404 {object} map[string]any
// @Success 200 {object} DatasourceInfo
// @Router /datasources/{name} [get]
func (s *Server) GetDatasourceByName(c *gin.Context) {
	h, err := s.registry.Lookup(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, s.info(h))
}

// PingDatabase godoc
// @Summary PingDatabase resolves the handle of a DB through the routing path and pings it.
// @Tags Datasources
// @Produce json
// @Param name path string true "Name of the datasource"
// @Param db path int true "DB index"
// @Failure 400 {object} map[string]any
// @Failure 403 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Success 200 {object} PingResult
// @Router /datasources/{name}/databases/{db}/ping [get]
func (s *Server) PingDatabase(c *gin.Context) {
	db, err := strconv.Atoi(c.Param("db"))
	if err != nil || db < 0 {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid db index %q", c.Param("db"))})
		return
	}
	h, err := s.registry.Lookup(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	handle, err := h.AtIndex(c.Request.Context(), db)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := handle.Ping(c.Request.Context()); err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": fmt.Sprintf("ping %s failed, error: %v", handle, err)})
		return
	}
	c.IndentedJSON(http.StatusOK, PingResult{
		Datasource: handle.Datasource,
		DB:         handle.DB,
		Handle:     handle.ID.String(),
		Status:     "PONG",
	})
}

// GetVersion responds with the library version.
func GetVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"version": multiredis.Version})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, multiredis.ErrUnknownDatasource):
		status = http.StatusNotFound
	case errors.Is(err, multiredis.ErrStaticMode):
		status = http.StatusForbidden
	case errors.Is(err, multiredis.ErrConnection):
		status = http.StatusBadGateway
	case errors.Is(err, router.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	c.IndentedJSON(status, gin.H{"message": err.Error()})
}
