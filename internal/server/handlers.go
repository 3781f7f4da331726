package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/portfolio-engine/internal/achievements"
	"github.com/jonathan/portfolio-engine/internal/filter"
	"github.com/jonathan/portfolio-engine/internal/types"
)

// ProjectsResponse is the body of GET /projects.
type ProjectsResponse struct {
	Projects []types.Project  `json:"projects"`
	Count    int              `json:"count"`
	Total    int              `json:"total"`
	Criteria *filter.Criteria `json:"criteria"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"projects": s.Catalog().Len(),
		"sessions": s.sessions.Len(),
	})
}

// filtered applies the query-string criteria to the current catalog.
func (s *Server) filtered(r *http.Request) (*filter.Catalog, *filter.Criteria, []types.Project) {
	c := s.Catalog()
	criteria := filter.ParseCriteria(r.URL.Query(), c.Hierarchy())
	return c, criteria, c.Filter(criteria)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	c, criteria, projects := s.filtered(r)
	s.jsonResponse(w, http.StatusOK, ProjectsResponse{
		Projects: projects,
		Count:    len(projects),
		Total:    c.Len(),
		Criteria: criteria,
	})
}

// handleFacets returns full-dataset facets. With narrow=true the facets are
// computed over the filtered subset instead.
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	narrow, _ := strconv.ParseBool(r.URL.Query().Get("narrow"))
	if !narrow {
		s.jsonResponse(w, http.StatusOK, s.Catalog().Facets())
		return
	}
	c, _, projects := s.filtered(r)
	s.jsonResponse(w, http.StatusOK, c.FacetsFor(projects))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	c, _, projects := s.filtered(r)
	s.jsonResponse(w, http.StatusOK, c.Stats(projects))
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	c, _, projects := s.filtered(r)
	s.jsonResponse(w, http.StatusOK, c.Markers(projects))
}

func (s *Server) handleTagCSV(w http.ResponseWriter, _ *http.Request) {
	c := s.Catalog()
	out, orphans, err := filter.TagCSV(c.Hierarchy(), c.Projects())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("X-Uncategorized-Tags", strconv.Itoa(orphans))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleBadgeCatalog(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, achievements.Catalog())
}
