package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/project-tracker-api/internal/constants"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/permissions"
	"github.com/yukikurage/project-tracker-api/internal/repository"
	"github.com/yukikurage/project-tracker-api/internal/utils"
	"go.uber.org/zap"
)

// CompanyService handles company business logic
type CompanyService struct {
	base
	cascade bool
}

// NewCompanyService creates a new CompanyService. With cascade, deleting a
// company also deletes its projects and their tasks.
func NewCompanyService(store repository.Store, publisher events.Publisher, logger *zap.Logger, cascade bool) *CompanyService {
	return &CompanyService{
		base:    newBase(store, publisher, logger, "company_service"),
		cascade: cascade,
	}
}

// CompanyListItem is a company with its active project count.
type CompanyListItem struct {
	Company       models.Company
	ProjectsCount int64
}

// CompanyInput represents input for creating a company
type CompanyInput struct {
	Name string
}

// UpdateCompanyInput represents input for updating a company
type UpdateCompanyInput struct {
	Name *string
}

// List returns one page of companies, newest first.
func (s *CompanyService) List(ctx context.Context, actor *models.User, withDeleted bool, params utils.PageParams) (utils.Page[CompanyListItem], error) {
	src := s.store.Companies().List(ctx, includeDeleted(actor, withDeleted))
	page, err := utils.Paginate(ctx, src, params)
	if err != nil {
		return utils.Page[CompanyListItem]{}, fmt.Errorf("failed to list companies: %w", err)
	}

	ids := make([]uint64, len(page.Data))
	for i, c := range page.Data {
		ids[i] = c.ID
	}
	counts, err := s.store.Companies().CountProjects(ctx, ids)
	if err != nil {
		return utils.Page[CompanyListItem]{}, fmt.Errorf("failed to count projects: %w", err)
	}

	return utils.MapPage(page, func(c models.Company) CompanyListItem {
		return CompanyListItem{Company: c, ProjectsCount: counts[c.ID]}
	}), nil
}

// Get returns a company with its active projects.
func (s *CompanyService) Get(ctx context.Context, actor *models.User, id uint64, withDeleted bool) (*models.Company, error) {
	if err := permissions.ForCompany(actor, permissions.OpRead).Err("company"); err != nil {
		return nil, err
	}
	company, err := s.store.Companies().FindByID(ctx, id, includeDeleted(actor, withDeleted))
	if err != nil {
		return nil, lookupError(err, ErrCompanyNotFound, "company")
	}
	return company, nil
}

// Create creates a company. Staff only.
func (s *CompanyService) Create(ctx context.Context, actor *models.User, input CompanyInput) (*models.Company, error) {
	if err := permissions.ForCompany(actor, permissions.OpCreate).Err("company"); err != nil {
		return nil, err
	}

	fields := fieldErrors{}
	name := fields.text("name", input.Name, constants.MaxNameLength)
	if err := fields.err(); err != nil {
		return nil, err
	}

	company := &models.Company{Name: name}
	if err := s.store.Companies().Create(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.publish(events.CompanyCreated, company.ID, actor, map[string]string{"name": company.Name})
	return company, nil
}

// Update changes the company's name. Staff only.
func (s *CompanyService) Update(ctx context.Context, actor *models.User, id uint64, input UpdateCompanyInput) (*models.Company, error) {
	if err := permissions.ForCompany(actor, permissions.OpUpdate).Err("company"); err != nil {
		return nil, err
	}

	company, err := s.store.Companies().FindByID(ctx, id, false)
	if err != nil {
		return nil, lookupError(err, ErrCompanyNotFound, "company")
	}

	fields := fieldErrors{}
	if input.Name != nil {
		company.Name = fields.text("name", *input.Name, constants.MaxNameLength)
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	if err := s.store.Companies().Update(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	s.publish(events.CompanyUpdated, company.ID, actor, nil)
	return company, nil
}

// Delete soft-deletes the company.
func (s *CompanyService) Delete(ctx context.Context, actor *models.User, id uint64) error {
	if err := permissions.ForCompany(actor, permissions.OpDelete).Err("company"); err != nil {
		return err
	}

	if _, err := s.store.Companies().FindByID(ctx, id, false); err != nil {
		return lookupError(err, ErrCompanyNotFound, "company")
	}
	if err := s.store.Companies().SoftDelete(ctx, id, s.now(), s.cascade); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	s.logger.Info("company deleted", zap.Uint64("company_id", id), zap.Uint64("actor_id", actor.ID), zap.Bool("cascade", s.cascade))
	s.publish(events.CompanyDeleted, id, actor, map[string]bool{"cascade": s.cascade})
	return nil
}

// Restore clears the deletion mark. Projects deleted with the company stay
// deleted.
func (s *CompanyService) Restore(ctx context.Context, actor *models.User, id uint64) (*models.Company, error) {
	if err := permissions.ForCompany(actor, permissions.OpRestore).Err("company"); err != nil {
		return nil, err
	}

	if _, err := s.store.Companies().FindByID(ctx, id, true); err != nil {
		return nil, lookupError(err, ErrCompanyNotFound, "company")
	}
	if err := s.store.Companies().Restore(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to restore company: %w", err)
	}

	company, err := s.store.Companies().FindByID(ctx, id, false)
	if err != nil {
		return nil, lookupError(err, ErrCompanyNotFound, "company")
	}

	s.publish(events.CompanyRestored, id, actor, nil)
	return company, nil
}
