package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/scrape"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type ScrapeHandler struct {
	svc       *scrape.Service
	discovery *scrape.Discovery
}

func NewScrapeHandler(svc *scrape.Service, discovery *scrape.Discovery) *ScrapeHandler {
	return &ScrapeHandler{svc: svc, discovery: discovery}
}

func scrapeError(w http.ResponseWriter, err error) {
	if errors.Is(err, scrape.ErrNotFound) {
		respond.Failure(w, http.StatusNotFound, "not found")
		return
	}
	respond.Error(w, err)
}

func (h *ScrapeHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var in scrape.ProjectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.svc.CreateProject(r.Context(), access, in)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "project created", p)
}

func (h *ScrapeHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	projects, err := h.svc.ListProjects(r.Context(), access)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "projects", map[string]interface{}{"projects": projects, "count": len(projects)})
}

func (h *ScrapeHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "project_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid project id")
		return
	}

	p, err := h.svc.GetProject(r.Context(), access, id)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "project", p)
}

func (h *ScrapeHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "project_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if err := h.svc.DeleteProject(r.Context(), access, id); err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "project deleted", nil)
}

func (h *ScrapeHandler) CreateJurisdiction(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var in scrape.JurisdictionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	j, err := h.svc.CreateJurisdiction(r.Context(), access, in)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "jurisdiction created", j)
}

func (h *ScrapeHandler) ListJurisdictions(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	projectID, err := uuid.Parse(chi.URLParam(r, "project_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid project id")
		return
	}

	list, err := h.svc.ListJurisdictions(r.Context(), access, projectID)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "jurisdictions", map[string]interface{}{"jurisdictions": list, "count": len(list)})
}

// DiscoverSources asks the discovery model for candidate source URLs.
// Results are suggestions only; nothing is persisted.
func (h *ScrapeHandler) DiscoverSources(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	jurisdictionID, err := uuid.Parse(chi.URLParam(r, "jurisdiction_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid jurisdiction id")
		return
	}

	j, err := h.svc.GetJurisdiction(r.Context(), access, jurisdictionID)
	if err != nil {
		scrapeError(w, err)
		return
	}

	candidates, err := h.discovery.Suggest(r.Context(), j.Name, j.Description, j.Guidance)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "candidate sources", map[string]interface{}{"candidates": candidates, "count": len(candidates)})
}

func (h *ScrapeHandler) CreateSource(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var in scrape.SourceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	src, err := h.svc.CreateSource(r.Context(), access, in)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "source created", src)
}

func (h *ScrapeHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	jurisdictionID, err := uuid.Parse(chi.URLParam(r, "jurisdiction_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid jurisdiction id")
		return
	}

	sources, err := h.svc.ListSources(r.Context(), access, jurisdictionID)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "sources", map[string]interface{}{"sources": sources, "count": len(sources)})
}

func (h *ScrapeHandler) DeactivateSource(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "source_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid source id")
		return
	}

	if err := h.svc.DeactivateSource(r.Context(), access, id); err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "source deactivated", nil)
}

func (h *ScrapeHandler) TriggerScrape(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	sourceID, err := uuid.Parse(chi.URLParam(r, "source_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid source id")
		return
	}

	job, err := h.svc.TriggerScrape(r.Context(), access, sourceID)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusAccepted, "scrape queued", job)
}

func (h *ScrapeHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	jobID, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.svc.GetJob(r.Context(), access, jobID)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "scrape job", job)
}

func (h *ScrapeHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	sourceID, err := uuid.Parse(chi.URLParam(r, "source_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid source id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	revisions, err := h.svc.ListRevisions(r.Context(), access, sourceID, limit)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "revisions", map[string]interface{}{"revisions": revisions, "count": len(revisions)})
}

func (h *ScrapeHandler) GetRevision(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	revisionID, err := uuid.Parse(chi.URLParam(r, "revision_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid revision id")
		return
	}

	rev, err := h.svc.GetRevision(r.Context(), access, revisionID)
	if err != nil {
		scrapeError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "revision", rev)
}
