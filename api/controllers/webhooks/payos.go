package webhooks

import (
	"encoding/json"
	"net/http"

	"github.com/lamnguyendev/keymart-backend/internal/payments"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/payos"
	"github.com/lamnguyendev/keymart-backend/pkg/types"
)

type PayOSController struct {
	reconciler *payments.Reconciler
}

func NewPayOSController(reconciler *payments.Reconciler) *PayOSController {
	return &PayOSController{reconciler: reconciler}
}

// Handle accepts a gateway delivery. The response is always HTTP 200; the
// gateway retries on non-200 and none of our rejection reasons are fixed by
// retrying. Processing failures that a retry could fix are the exception.
func (c *PayOSController) Handle(w http.ResponseWriter, r *http.Request) {
	var payload payos.WebhookPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		writeAck(w, http.StatusOK, types.WebhookAck{Success: false, Message: "malformed payload"})
		return
	}

	outcome, err := c.reconciler.HandleWebhook(r.Context(), payload)
	if err != nil {
		logger.FromContext(r.Context()).Error(err, "webhook processing failed")
		writeAck(w, http.StatusOK, types.WebhookAck{Success: false, Message: "processing failed"})
		return
	}

	writeAck(w, http.StatusOK, types.WebhookAck{Success: outcome.Accepted, Message: outcome.Message})
}

func writeAck(w http.ResponseWriter, status int, ack types.WebhookAck) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ack)
}
