package production

import (
	"context"
	"fmt"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"
	"mfg-erp-backend/internal/quantity"
	"mfg-erp-backend/internal/stock"

	"gorm.io/gorm"
)

func requireStarted(p *models.ProductionProcess) error {
	if p.ProductionStartedAt == nil {
		return apperr.Conflict("Production has not started yet")
	}
	if p.Status == models.StatusDispatched {
		return apperr.Conflict("Production process is already dispatched")
	}
	return nil
}

// MoveToInventory hands the finished goods over to the inventory team.
func (s *Service) MoveToInventory(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	p, _, err := s.transition(ctx, id, actor, "finished goods moved to inventory", func(tx *gorm.DB, p *models.ProductionProcess) error {
		if err := requireStarted(p); err != nil {
			return err
		}
		if _, err := s.ledger.Get(tx, p.FinishedGood.ItemID); err != nil {
			return err
		}
		p.Status = models.StatusMovedToInventory
		return nil
	})
	return p, err
}

func (s *Service) OutFinishedGoods(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	p, _, err := s.transition(ctx, id, actor, "finished goods out", func(_ *gorm.DB, p *models.ProductionProcess) error {
		if err := requireStarted(p); err != nil {
			return err
		}
		p.Status = models.StatusOutFinishedGoods
		return nil
	})
	return p, err
}

// UpdateInventoryStatus lets the inventory team allocate or confirm finished goods.
// Every accepted call publishes the new status.
func (s *Service) UpdateInventoryStatus(ctx context.Context, id uint, status models.ProductionStatus, actor auth.Principal) (*models.ProductionProcess, error) {
	if status != models.StatusAllocatedFinishGoods && status != models.StatusReceived {
		return nil, apperr.Validation("Invalid status value")
	}
	p, _, err := s.transition(ctx, id, actor, fmt.Sprintf("inventory status set to %s", status), func(_ *gorm.DB, p *models.ProductionProcess) error {
		if p.Status == models.StatusReceived && status == models.StatusAllocatedFinishGoods {
			return apperr.Conflict("Received finished goods can't go back to allocated")
		}
		p.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyStatus(ctx, p)
	return p, nil
}

// ReceiveByInventory books the accumulated finished output into stock.
func (s *Service) ReceiveByInventory(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	p, _, err := s.transition(ctx, id, actor, "finished goods received by inventory", func(tx *gorm.DB, p *models.ProductionProcess) error {
		if err := requireStarted(p); err != nil {
			return err
		}
		fg := &p.FinishedGood
		if fg.FinalProduceQuantity > 0 {
			_, err := s.ledger.Adjust(tx, stock.Movement{
				ProductID: fg.ItemID,
				Delta:     fg.FinalProduceQuantity,
				Reason:    fmt.Sprintf("production process %d finished goods received", p.ID),
				Actor:     actor,
			})
			if err != nil {
				return err
			}
			fg.InventoryLastChangesQuantity = quantity.Add(fg.InventoryLastChangesQuantity, fg.FinalProduceQuantity)
			fg.FinalProduceQuantity = 0
		}
		p.Status = models.StatusReceived
		return nil
	})
	return p, err
}

func (s *Service) Dispatch(ctx context.Context, id uint, actor auth.Principal) (*models.ProductionProcess, error) {
	p, _, err := s.transition(ctx, id, actor, "dispatched", func(_ *gorm.DB, p *models.ProductionProcess) error {
		switch p.Status {
		case models.StatusReceived, models.StatusOutFinishedGoods, models.StatusMovedToInventory:
		default:
			return apperr.Conflict("Only finished goods handed to inventory can be dispatched")
		}
		p.Status = models.StatusDispatched
		return nil
	})
	return p, err
}
