package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

var ErrNotFound = errors.New("not found")

// Enqueuer hands scrape jobs to the task queue.
type Enqueuer interface {
	EnqueueScrape(ctx context.Context, jobID uuid.UUID) error
}

type Service struct {
	db    *pgxpool.Pool
	queue Enqueuer
}

func NewService(db *pgxpool.Pool, queue Enqueuer) *Service {
	return &Service{db: db, queue: queue}
}

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in *ProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (s *Service) CreateProject(ctx context.Context, access *tenant.Access, in ProjectInput) (*models.Project, error) {
	p := &models.Project{
		ID:             uuid.New(),
		OrganizationID: access.OrganizationID,
		Name:           in.Name,
		Description:    in.Description,
		CreatedBy:      access.User.ID,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO projects (id, organization_id, name, description, created_by)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		p.ID, p.OrganizationID, p.Name, p.Description, p.CreatedBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context, access *tenant.Access) ([]models.Project, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, organization_id, name, description, created_by, created_at, updated_at
		 FROM projects WHERE organization_id = $1 ORDER BY created_at DESC`,
		access.OrganizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (s *Service) GetProject(ctx context.Context, access *tenant.Access, projectID uuid.UUID) (*models.Project, error) {
	p := &models.Project{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, name, description, created_by, created_at, updated_at
		 FROM projects WHERE id = $1`, projectID,
	).Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if err := access.Verify(p.OrganizationID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, access *tenant.Access, projectID uuid.UUID) error {
	if _, err := s.GetProject(ctx, access, projectID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

type JurisdictionInput struct {
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Guidance    string    `json:"guidance"`
}

func (in *JurisdictionInput) Validate() error {
	if in.ProjectID == uuid.Nil {
		return errors.New("project_id is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (s *Service) CreateJurisdiction(ctx context.Context, access *tenant.Access, in JurisdictionInput) (*models.Jurisdiction, error) {
	if _, err := s.GetProject(ctx, access, in.ProjectID); err != nil {
		return nil, err
	}

	j := &models.Jurisdiction{
		ID:             uuid.New(),
		OrganizationID: access.OrganizationID,
		ProjectID:      in.ProjectID,
		Name:           in.Name,
		Description:    in.Description,
		Guidance:       in.Guidance,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO jurisdictions (id, organization_id, project_id, name, description, guidance)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		j.ID, j.OrganizationID, j.ProjectID, j.Name, j.Description, j.Guidance,
	).Scan(&j.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert jurisdiction: %w", err)
	}
	return j, nil
}

func (s *Service) ListJurisdictions(ctx context.Context, access *tenant.Access, projectID uuid.UUID) ([]models.Jurisdiction, error) {
	if _, err := s.GetProject(ctx, access, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, organization_id, project_id, name, description, guidance, created_at
		 FROM jurisdictions WHERE project_id = $1 ORDER BY name`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query jurisdictions: %w", err)
	}
	defer rows.Close()

	var list []models.Jurisdiction
	for rows.Next() {
		var j models.Jurisdiction
		if err := rows.Scan(&j.ID, &j.OrganizationID, &j.ProjectID, &j.Name, &j.Description, &j.Guidance, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan jurisdiction: %w", err)
		}
		list = append(list, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jurisdictions: %w", err)
	}
	return list, nil
}

func (s *Service) GetJurisdiction(ctx context.Context, access *tenant.Access, id uuid.UUID) (*models.Jurisdiction, error) {
	j := &models.Jurisdiction{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, project_id, name, description, guidance, created_at
		 FROM jurisdictions WHERE id = $1`, id,
	).Scan(&j.ID, &j.OrganizationID, &j.ProjectID, &j.Name, &j.Description, &j.Guidance, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load jurisdiction: %w", err)
	}
	if err := access.Verify(j.OrganizationID); err != nil {
		return nil, err
	}
	return j, nil
}

type SourceInput struct {
	JurisdictionID uuid.UUID `json:"jurisdiction_id"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
}

func (in *SourceInput) Validate() error {
	if in.JurisdictionID == uuid.Nil {
		return errors.New("jurisdiction_id is required")
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be a valid http(s) URL")
	}
	return nil
}

func (s *Service) CreateSource(ctx context.Context, access *tenant.Access, in SourceInput) (*models.Source, error) {
	if _, err := s.GetJurisdiction(ctx, access, in.JurisdictionID); err != nil {
		return nil, err
	}

	src := &models.Source{
		ID:             uuid.New(),
		OrganizationID: access.OrganizationID,
		JurisdictionID: in.JurisdictionID,
		URL:            in.URL,
		Title:          in.Title,
		IsActive:       true,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO sources (id, organization_id, jurisdiction_id, url, title, is_active)
		 VALUES ($1, $2, $3, $4, $5, true) RETURNING created_at`,
		src.ID, src.OrganizationID, src.JurisdictionID, src.URL, src.Title,
	).Scan(&src.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert source: %w", err)
	}
	return src, nil
}

func (s *Service) ListSources(ctx context.Context, access *tenant.Access, jurisdictionID uuid.UUID) ([]models.Source, error) {
	if _, err := s.GetJurisdiction(ctx, access, jurisdictionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, organization_id, jurisdiction_id, url, title, is_active, last_scraped_at, created_at
		 FROM sources WHERE jurisdiction_id = $1 ORDER BY created_at`,
		jurisdictionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.OrganizationID, &src.JurisdictionID, &src.URL, &src.Title,
			&src.IsActive, &src.LastScrapedAt, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

func (s *Service) GetSource(ctx context.Context, access *tenant.Access, id uuid.UUID) (*models.Source, error) {
	src := &models.Source{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, jurisdiction_id, url, title, is_active, last_scraped_at, created_at
		 FROM sources WHERE id = $1`, id,
	).Scan(&src.ID, &src.OrganizationID, &src.JurisdictionID, &src.URL, &src.Title,
		&src.IsActive, &src.LastScrapedAt, &src.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	if err := access.Verify(src.OrganizationID); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *Service) DeactivateSource(ctx context.Context, access *tenant.Access, id uuid.UUID) error {
	if _, err := s.GetSource(ctx, access, id); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `UPDATE sources SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate source: %w", err)
	}
	return nil
}

// TriggerScrape records a queued job and enqueues it. The job row exists
// before the task so a worker picking it up always finds it.
func (s *Service) TriggerScrape(ctx context.Context, access *tenant.Access, sourceID uuid.UUID) (*models.ScrapeJob, error) {
	src, err := s.GetSource(ctx, access, sourceID)
	if err != nil {
		return nil, err
	}
	if !src.IsActive {
		return nil, errors.New("source is inactive")
	}

	job := &models.ScrapeJob{
		ID:             uuid.New(),
		OrganizationID: src.OrganizationID,
		SourceID:       src.ID,
		Status:         models.ScrapeJobQueued,
		TriggeredBy:    &access.User.ID,
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO scrape_jobs (id, organization_id, source_id, status, triggered_by)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		job.ID, job.OrganizationID, job.SourceID, job.Status, job.TriggeredBy,
	).Scan(&job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert scrape job: %w", err)
	}

	if err := s.queue.EnqueueScrape(ctx, job.ID); err != nil {
		// The row stays queued; a periodic sweep or retry can pick it up.
		slog.Error("failed to enqueue scrape job", "job_id", job.ID, "error", err)
		return nil, fmt.Errorf("enqueue scrape: %w", err)
	}

	slog.Info("scrape triggered", "job_id", job.ID, "source_id", src.ID, "by", access.User.ID)
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, access *tenant.Access, jobID uuid.UUID) (*models.ScrapeJob, error) {
	j := &models.ScrapeJob{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, source_id, status, error, triggered_by, started_at, finished_at, created_at
		 FROM scrape_jobs WHERE id = $1`, jobID,
	).Scan(&j.ID, &j.OrganizationID, &j.SourceID, &j.Status, &j.Error, &j.TriggeredBy,
		&j.StartedAt, &j.FinishedAt, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load scrape job: %w", err)
	}
	if err := access.Verify(j.OrganizationID); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Service) ListRevisions(ctx context.Context, access *tenant.Access, sourceID uuid.UUID, limit int) ([]models.Revision, error) {
	if _, err := s.GetSource(ctx, access, sourceID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, organization_id, source_id, content_hash, summary, metadata, scraped_at
		 FROM revisions WHERE source_id = $1 ORDER BY scraped_at DESC LIMIT $2`,
		sourceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []models.Revision
	for rows.Next() {
		var rev models.Revision
		if err := rows.Scan(&rev.ID, &rev.OrganizationID, &rev.SourceID, &rev.ContentHash,
			&rev.Summary, &rev.Metadata, &rev.ScrapedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revisions, nil
}

func (s *Service) GetRevision(ctx context.Context, access *tenant.Access, revisionID uuid.UUID) (*models.Revision, error) {
	rev := &models.Revision{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, source_id, content_hash, content, summary, metadata, scraped_at
		 FROM revisions WHERE id = $1`, revisionID,
	).Scan(&rev.ID, &rev.OrganizationID, &rev.SourceID, &rev.ContentHash,
		&rev.Content, &rev.Summary, &rev.Metadata, &rev.ScrapedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load revision: %w", err)
	}
	if err := access.Verify(rev.OrganizationID); err != nil {
		return nil, err
	}
	return rev, nil
}
