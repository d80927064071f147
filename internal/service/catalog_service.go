package service

import (
	"context"
	"log/slog"

	"github.com/vbonduro/roadiebag/internal/domain"
	"github.com/vbonduro/roadiebag/internal/logging"
)

// itemRepository is the subset of store.ItemStore that CatalogService requires.
type itemRepository interface {
	Create(ctx context.Context, spec domain.ItemSpec) (*domain.Item, error)
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	Update(ctx context.Context, id int64, spec domain.ItemSpec) (*domain.Item, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.ItemFilter) (*domain.ItemPage, error)
}

type CatalogService struct {
	items  itemRepository
	logger *slog.Logger
}

func NewCatalogService(items itemRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{items: items, logger: logger}
}

func (s *CatalogService) CreateItem(ctx context.Context, spec domain.ItemSpec) (*domain.Item, error) {
	item, err := s.items.Create(ctx, spec)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("item created", "item_id", item.ID, "name", item.Name)
	return item, nil
}

func (s *CatalogService) ReadItem(ctx context.Context, id int64) (*domain.Item, error) {
	return s.items.GetByID(ctx, id)
}

func (s *CatalogService) UpdateItem(ctx context.Context, id int64, spec domain.ItemSpec) (*domain.Item, error) {
	item, err := s.items.Update(ctx, id, spec)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("item updated", "item_id", item.ID)
	return item, nil
}

// DeleteItem removes the item together with its checkout history.
func (s *CatalogService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx, s.logger).Info("item deleted", "item_id", id)
	return nil
}

func (s *CatalogService) ListItems(ctx context.Context, filter domain.ItemFilter) (*domain.ItemPage, error) {
	return s.items.List(ctx, filter)
}
