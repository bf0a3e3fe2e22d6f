package cron

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/db/models"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/metrics"
)

const orderCleanupJobName = "order_cleanup"

// OrderCleanup deletes orders whose bill never left PENDING within the
// expiry window. Stock was never committed for them, so deletion has no
// inventory effect. Each order is removed in its own transaction; one bad
// order does not stop the sweep.
type OrderCleanup struct {
	db       *db.Client
	maxAge   time.Duration
	interval time.Duration
	metrics  *metrics.CronJobMetrics
	now      func() time.Time
}

func NewOrderCleanup(client *db.Client, maxAge, interval time.Duration, m *metrics.CronJobMetrics) *OrderCleanup {
	return &OrderCleanup{
		db:       client,
		maxAge:   maxAge,
		interval: interval,
		metrics:  m,
		now:      time.Now,
	}
}

func (c *OrderCleanup) Name() string            { return orderCleanupJobName }
func (c *OrderCleanup) Interval() time.Duration { return c.interval }

// expiredOrders is the single definition of "expired": bill still PENDING
// and the order older than the window. Count and sweep both use it so they
// can never disagree.
func (c *OrderCleanup) expiredOrders(ctx context.Context) *gorm.DB {
	cutoff := c.now().Add(-c.maxAge)
	return c.db.Gorm().WithContext(ctx).Model(&models.Order{}).
		Joins("JOIN bills ON bills.id = orders.bill_id").
		Where("bills.status = ?", enums.BillStatusPending).
		Where("orders.created_at < ?", cutoff)
}

// CountExpired reports how many orders the next sweep would remove.
func (c *OrderCleanup) CountExpired(ctx context.Context) (int64, error) {
	var count int64
	if err := c.expiredOrders(ctx).Count(&count).Error; err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "count expired orders")
	}
	return count, nil
}

// Sweep removes every currently expired order and returns how many were
// deleted. Per-order failures are aggregated and returned after the sweep
// finishes.
func (c *OrderCleanup) Sweep(ctx context.Context) (int, error) {
	var expired []models.Order
	if err := c.expiredOrders(ctx).Select("orders.*").Find(&expired).Error; err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "list expired orders")
	}

	log := logger.FromContext(ctx).WithField("job", orderCleanupJobName)

	var errs error
	removed := 0
	for _, order := range expired {
		err := c.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
				return errors.Wrap(errors.CodeInternal, err, "delete order items")
			}
			// the guard re-checks PENDING so a payment that lands mid-sweep
			// keeps its order
			res := tx.Where("id = ?", order.ID).
				Where("bill_id IN (?)", tx.Session(&gorm.Session{NewDB: true}).
					Model(&models.Bill{}).Select("id").
					Where("id = ? AND status = ?", order.BillID, enums.BillStatusPending)).
				Delete(&models.Order{})
			if res.Error != nil {
				return errors.Wrap(errors.CodeInternal, res.Error, "delete order")
			}
			if res.RowsAffected == 0 {
				return errors.New(errors.CodeStateConflict, "order settled during sweep")
			}
			billRes := tx.Where("id = ? AND status = ?", order.BillID, enums.BillStatusPending).
				Delete(&models.Bill{})
			if billRes.Error != nil {
				return errors.Wrap(errors.CodeInternal, billRes.Error, "delete bill")
			}
			if billRes.RowsAffected == 0 {
				return errors.New(errors.CodeStateConflict, "bill settled during sweep")
			}
			return nil
		})
		if err != nil {
			log.WithField("order_id", order.ID).Error(err, "expired order skipped")
			errs = multierr.Append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.WithField("removed", removed).Info("expired orders cleaned")
	}
	c.metrics.AddCleaned(orderCleanupJobName, removed)
	return removed, errs
}

// Run implements Job.
func (c *OrderCleanup) Run(ctx context.Context) error {
	_, err := c.Sweep(ctx)
	return err
}
