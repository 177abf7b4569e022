// Package api serves refinements over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/subdiv/internal/webui"
)

type Server struct {
	store   *RefinementStore
	service *RefinementService
}

func NewServer(store *RefinementStore, service *RefinementService) *Server {
	if store == nil {
		store = NewRefinementStore(0)
	}
	return &Server{store: store, service: service}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/refinements", s.handleCreateRefinement)
	e.GET("/v1/refinements/:id", s.handleGetRefinement)
	e.DELETE("/v1/refinements/:id", s.handleDeleteRefinement)
	e.GET("/v1/backends", s.handleListBackends)
	e.GET("/", handleConsole)
}

func handleConsole(c *echo.Context) error {
	return c.Blob(http.StatusOK, "text/html; charset=utf-8", webui.Index())
}

func (s *Server) handleCreateRefinement(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "refinement service not configured", "", "")
	}
	req, err := decodeJSON[RefinementRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error(), "")
	}

	out, err := s.service.Refine(c.Request().Context(), &req)
	if err != nil {
		var ire invalidRequestError
		if errors.As(err, &ire) {
			return writeBadRequest(c, ire.msg, ire.param)
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	if req.Store == nil || *req.Store {
		s.store.Save(out)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetRefinement(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeNotFound(c, "refinement not found")
	}
	rec, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "refinement not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteRefinement(c *echo.Context) error {
	id := c.Param("id")
	if id == "" || !s.store.Delete(id) {
		return writeNotFound(c, "refinement not found")
	}
	return c.JSON(http.StatusOK, DeleteRefinementResp{
		ID:      id,
		Object:  "refinement",
		Deleted: true,
	})
}

func (s *Server) handleListBackends(c *echo.Context) error {
	out := BackendList{Object: "list", Data: []BackendInfo{}}
	if s.service != nil {
		names, def := s.service.Backends()
		for _, n := range names {
			out.Data = append(out.Data, BackendInfo{ID: n, Object: "backend", Default: n == def})
		}
	}
	return c.JSON(http.StatusOK, out)
}
