package customers

import (
	"context"
	"errors"

	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// Service wraps a Repository with validation.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("customers: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, in Input) (*Customer, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("customer created", "id", c.ID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Customer, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Customer, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("customer deleted", "id", id)
	return nil
}

// Exists reports whether id refers to a stored customer.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// FindOrCreateByEmail returns the customer owning in.Email, creating it when
// missing. A missing name falls back to the email address.
func (s *Service) FindOrCreateByEmail(ctx context.Context, in Input) (*Customer, bool, error) {
	in.Normalize()
	if in.Name == "" {
		in.Name = in.Email
	}
	if err := in.Validate(); err != nil {
		return nil, false, err
	}
	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	c, err := s.repo.Create(ctx, in)
	if errors.Is(err, ErrDuplicateEmail) {
		// lost a race with a concurrent insert
		existing, getErr := s.repo.GetByEmail(ctx, in.Email)
		return existing, false, getErr
	}
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("customer created from booking", "id", c.ID)
	return c, true, nil
}
