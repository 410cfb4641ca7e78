package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/service"
)

// BillingCronHandler handles billing related cron jobs
type BillingCronHandler struct {
	billingService service.BillingService
	logger         *logger.Logger
}

// NewBillingCronHandler creates a new billing cron handler
func NewBillingCronHandler(
	billingService service.BillingService,
	logger *logger.Logger,
) *BillingCronHandler {
	return &BillingCronHandler{
		billingService: billingService,
		logger:         logger,
	}
}

// RunDailyBilling charges all due subscriptions. The endpoint is idempotent
// for a given day: subscriptions billed by an earlier invocation are no
// longer due.
func (h *BillingCronHandler) RunDailyBilling(c *gin.Context) {
	h.logger.Infow("starting billing cron job", "time", time.Now().UTC().Format(time.RFC3339))

	summary, err := h.billingService.ProcessDueSubscriptions(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to run billing pass", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed billing cron job",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
	c.JSON(http.StatusOK, summary)
}
