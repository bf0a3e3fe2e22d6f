package payments

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/lamnguyendev/keymart-backend/internal/inventory"
	"github.com/lamnguyendev/keymart-backend/internal/orders"
	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/payos"
)

// WebhookVerifier is the gateway-side half of webhook handling.
type WebhookVerifier interface {
	VerifyWebhook(payload payos.WebhookPayload) (*payos.WebhookData, error)
}

// Reconciler settles bills from gateway webhooks. Every transition is a
// conditional update off PENDING, so replays and races resolve to a no-op.
type Reconciler struct {
	db       *db.Client
	repo     *orders.Repository
	inv      *inventory.Service
	verifier WebhookVerifier
	guard    *IdempotencyGuard
}

func NewReconciler(client *db.Client, inv *inventory.Service, verifier WebhookVerifier, guard *IdempotencyGuard) *Reconciler {
	return &Reconciler{
		db:       client,
		repo:     orders.NewRepository(client.Gorm()),
		inv:      inv,
		verifier: verifier,
		guard:    guard,
	}
}

// Outcome describes how a webhook delivery was resolved. All outcomes
// answer HTTP 200; Accepted distinguishes settlements from drops.
type Outcome struct {
	Accepted bool
	Message  string
}

// HandleWebhook verifies, matches and settles one gateway delivery.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload payos.WebhookPayload) (*Outcome, error) {
	log := logger.FromContext(ctx)

	data, err := r.verifier.VerifyWebhook(payload)
	if err != nil {
		log.Error(err, "webhook signature rejected")
		return nil, errors.Wrap(errors.CodeUnauthorized, err, "invalid webhook signature")
	}

	transactionID := strconv.FormatInt(data.OrderCode, 10)
	log = log.WithFields(map[string]any{
		"order_code": data.OrderCode,
		"amount":     data.Amount,
	})

	if r.guard != nil {
		fresh, err := r.guard.CheckAndMark(ctx, transactionID)
		if err != nil {
			log.Error(err, "idempotency guard unavailable, continuing on DB guard")
		} else if !fresh {
			log.Info("duplicate webhook delivery dropped by guard")
			return &Outcome{Accepted: true, Message: "already processed"}, nil
		}
	}

	outcome, err := r.settle(ctx, transactionID, data, log)
	if err != nil && r.guard != nil {
		// allow the gateway retry to take another pass
		if relErr := r.guard.Release(ctx, transactionID); relErr != nil {
			log.Error(relErr, "release idempotency marker")
		}
	}
	return outcome, err
}

func (r *Reconciler) settle(ctx context.Context, transactionID string, data *payos.WebhookData, log *logger.Logger) (*Outcome, error) {
	bill, err := r.repo.FindBillByTransactionID(ctx, transactionID, data.Reference)
	if err != nil {
		if typed := errors.As(err); typed != nil && typed.Code() == errors.CodeNotFound {
			log.Warn("webhook references unknown bill")
			return &Outcome{Accepted: false, Message: "bill not found"}, nil
		}
		return nil, err
	}

	if !paymentSucceeded(data) {
		affected, err := r.repo.UpdateBillStatus(ctx, bill.ID,
			string(enums.BillStatusPending), string(enums.BillStatusFailed),
			map[string]any{"note": data.Desc})
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			log.Info("bill already settled, failure webhook ignored")
			return &Outcome{Accepted: true, Message: "already processed"}, nil
		}
		log.Info("bill marked failed")
		return &Outcome{Accepted: true, Message: "payment failed"}, nil
	}

	if data.Amount != bill.Amount {
		log.WithField("expected", bill.Amount).Warn("webhook amount mismatch")
		return &Outcome{Accepted: false, Message: "amount mismatch"}, nil
	}

	order, err := r.repo.FindOrderByBillID(ctx, bill.ID)
	if err != nil {
		return nil, err
	}

	var settled bool
	err = r.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		affected, err := repo.UpdateBillStatus(ctx, bill.ID,
			string(enums.BillStatusPending), string(enums.BillStatusDone),
			map[string]any{"transaction_id": data.Reference})
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		settled = true
		return r.inv.CommitSale(ctx, tx, order.ID)
	})
	if err != nil {
		return nil, err
	}

	if !settled {
		log.Info("bill already left pending, webhook replay ignored")
		return &Outcome{Accepted: true, Message: "already processed"}, nil
	}

	log.WithField("order_id", order.ID).Info("payment settled")
	return &Outcome{Accepted: true, Message: "payment settled"}, nil
}

func paymentSucceeded(data *payos.WebhookData) bool {
	return data.Code == "00"
}
