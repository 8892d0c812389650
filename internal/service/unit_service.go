package service

import (
	"context"
	"fmt"

	"unitbook/internal/database"
	"unitbook/internal/domain"
	"unitbook/internal/models"

	"github.com/rs/zerolog"
)

// UnitService — каталог юнитов плюс кэшируемая статистика доступности.
type UnitService struct {
	store   domain.Store
	cache   domain.AvailabilityCache
	auditor domain.EventRecorder
	logger  *zerolog.Logger
}

func NewUnitService(store domain.Store, cache domain.AvailabilityCache, auditor domain.EventRecorder, logger *zerolog.Logger) *UnitService {
	return &UnitService{store: store, cache: cache, auditor: auditor, logger: logger}
}

func (s *UnitService) CreateUnit(ctx context.Context, unit *models.Unit) error {
	if err := s.store.CreateUnit(ctx, unit); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	s.auditor.Record(ctx, models.EntityUnit, models.OperationCreate, unit.ID,
		fmt.Sprintf("Unit created: %d", unit.ID))
	return nil
}

func (s *UnitService) UpdateUnit(ctx context.Context, id int64, upd database.UnitUpdate) (*models.Unit, error) {
	unit, err := s.store.UpdateUnit(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	// Смена статуса могла изменить доступность.
	if upd.Status != nil {
		s.invalidateCache(ctx)
	}
	s.auditor.Record(ctx, models.EntityUnit, models.OperationUpdate, id,
		fmt.Sprintf("Unit updated: %d", id))
	return unit, nil
}

func (s *UnitService) DeleteUnit(ctx context.Context, id int64) error {
	if err := s.store.DeleteUnit(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	s.auditor.Record(ctx, models.EntityUnit, models.OperationDelete, id,
		fmt.Sprintf("Unit deleted: %d", id))
	return nil
}

func (s *UnitService) GetUnit(ctx context.Context, id int64) (*models.Unit, error) {
	return s.store.GetUnit(ctx, id)
}

func (s *UnitService) ListUnits(ctx context.Context) ([]*models.Unit, error) {
	return s.store.ListUnits(ctx)
}

func (s *UnitService) SearchUnits(ctx context.Context, filter database.UnitFilter) ([]*models.Unit, error) {
	return s.store.SearchUnits(ctx, filter)
}

// AvailableUnitsCount отдает значение из кэша; при промахе пересчитывает
// из хранилища и заполняет кэш. Между инвалидацией и пересчетом допустимо
// устаревшее значение — это статистика, не часть протокола бронирования.
func (s *UnitService) AvailableUnitsCount(ctx context.Context) (int64, error) {
	if s.cache != nil {
		count, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("availability cache read error")
		} else if ok {
			return count, nil
		}
	}

	count, err := s.store.CountAvailableUnits(ctx)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, count); err != nil {
			s.logger.Error().Err(err).Msg("availability cache write error")
		}
	}
	return count, nil
}

func (s *UnitService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Error().Err(err).Msg("availability cache invalidation error")
	}
}
