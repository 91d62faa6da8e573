package production

import (
	"strconv"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/auth"
	"mfg-erp-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ListResponse struct {
	Data  []models.ProductionProcess `json:"production_processes"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid production process id")
	}
	return uint(id), nil
}

// processAction adapts the many transitions that only need the process id from the body.
func processAction(msg string, fn func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProcessRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		p, err := fn(c, body.ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":            msg,
			"production_process": p,
		})
	}
}

// POST /api/production-process
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInput
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		p, err := svc.Create(c.UserContext(), body, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":            "Production process has been added successfully",
			"production_process": p,
		})
	}
}

// PUT /api/production-process/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body UpdateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		p, err := svc.Update(c.UserContext(), id, body, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":            "Production process updated successfully",
			"production_process": p,
		})
	}
}

// GET /api/production-process/:id
func DetailsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		d, err := svc.Details(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"production_process": d})
	}
}

// GET /api/production-process/all?page=1&limit=100
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		limit := c.QueryInt("limit", 100)
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 1000 {
			limit = 100
		}
		out, total, err := svc.List(c.UserContext(), page, limit)
		if err != nil {
			return err
		}
		return c.JSON(ListResponse{Data: out, Total: total, Page: page, Limit: limit})
	}
}

// GET /api/production-process/inventory
func ListInventoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.ListInventoryProcesses(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"production_processes": out})
	}
}

// DELETE /api/production-process/:id
func RemoveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		p, err := svc.Remove(c.UserContext(), id, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":            "Production process has been deleted successfully",
			"production_process": p,
		})
	}
}

// DELETE /api/production-process/bulk
func BulkRemoveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkRemoveRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		n, err := svc.BulkRemove(c.UserContext(), body.IDs, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": strconv.Itoa(n) + " production process(es) deleted successfully",
			"deleted": n,
		})
	}
}

// GET /api/production-process/done/:id
func MarkDoneHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		p, returned, err := svc.MarkDone(c.UserContext(), id, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		if returned == nil {
			returned = []Returned{}
		}
		return c.JSON(fiber.Map{
			"message":            "Production process completed",
			"returned":           returned,
			"production_process": p,
		})
	}
}

// POST /api/bom/approve/inventory/raw-materials
func ApproveRawMaterialHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RawMaterialRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		res, err := svc.ApproveRawMaterial(c.UserContext(), body.ID, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":     "Raw material approval updated",
			"rawMaterial": res.RawMaterial,
			"allApproved": res.All,
			"advanced":    res.Advanced,
		})
	}
}

// PUT /api/production-process/inventory-in-transit
func InventoryInTransitHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TransitRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		res, err := svc.MarkOutForInventory(c.UserContext(), body.RawMaterialID, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":            "Raw material marked out for inventory successfully",
			"rawMaterial":        res.RawMaterial,
			"allOutForInventory": res.All,
			"advanced":           res.Advanced,
		})
	}
}

// PUT /api/production-process/request-allocation
func RequestAllocationHandler(svc *Service) fiber.Handler {
	return processAction("Status updated to 'Request for allocation'", func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error) {
		return svc.RequestAllocation(c.UserContext(), id, auth.PrincipalFrom(c))
	})
}

// PUT /api/production-process/start-production
func StartProductionHandler(svc *Service) fiber.Handler {
	return processAction("Production started successfully", func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error) {
		return svc.StartProduction(c.UserContext(), id, auth.PrincipalFrom(c))
	})
}

// PUT /api/production-process/pause
func PauseHandler(svc *Service) fiber.Handler {
	return processAction("Production paused", func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error) {
		return svc.Pause(c.UserContext(), id, auth.PrincipalFrom(c))
	})
}

// PUT /api/production-process/resume
func ResumeHandler(svc *Service) fiber.Handler {
	return processAction("Production resumed", func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error) {
		return svc.Resume(c.UserContext(), id, auth.PrincipalFrom(c))
	})
}

// POST /api/production-process/move-to-inventory
func MoveToInventoryHandler(svc *Service) fiber.Handler {
	return processAction("Finished goods moved to inventory", func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error) {
		return svc.MoveToInventory(c.UserContext(), id, auth.PrincipalFrom(c))
	})
}

// POST /api/production-process/out-finish-goods
func OutFinishedGoodsHandler(svc *Service) fiber.Handler {
	return processAction("Finished goods marked out", func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error) {
		return svc.OutFinishedGoods(c.UserContext(), id, auth.PrincipalFrom(c))
	})
}

// POST /api/production-process/receive-by-inventory
func ReceiveByInventoryHandler(svc *Service) fiber.Handler {
	return processAction("Finished goods received by inventory", func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error) {
		return svc.ReceiveByInventory(c.UserContext(), id, auth.PrincipalFrom(c))
	})
}

// POST /api/production-process/dispatch
func DispatchHandler(svc *Service) fiber.Handler {
	return processAction("Production process sent to dispatch", func(c *fiber.Ctx, id uint) (*models.ProductionProcess, error) {
		return svc.Dispatch(c.UserContext(), id, auth.PrincipalFrom(c))
	})
}

// PUT /api/production-process/update-status
func UpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StatusRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		p, err := svc.UpdateStatus(c.UserContext(), body.ID, body.Status, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":            "Status updated",
			"production_process": p,
		})
	}
}

// POST /api/production-process/update-inventory-status
func UpdateInventoryStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StatusRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		p, err := svc.UpdateInventoryStatus(c.UserContext(), body.ID, body.Status, auth.PrincipalFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":            "Inventory status updated",
			"production_process": p,
		})
	}
}
