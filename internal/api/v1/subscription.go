package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tirelane/tirelane/internal/api/dto"
	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/service"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, log: log}
}

// @Summary Select or change the caller's plan
// @Description Creates a subscription, or updates the existing one in place; paid plans are charged immediately
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.CreateSubscriptionRequest true "Plan selection"
// @Success 200 {object} dto.CreateSubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind create subscription request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel the caller's active subscription
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} dto.CancelSubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions [delete]
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	resp, err := h.service.Cancel(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the caller's current subscription
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions/current [get]
func (h *SubscriptionHandler) GetCurrentSubscription(c *gin.Context) {
	resp, err := h.service.GetCurrent(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List the caller's stored payment methods
// @Tags BillingKeys
// @Produce json
// @Success 200 {object} dto.ListBillingKeysResponse
// @Router /billing-keys [get]
func (h *SubscriptionHandler) ListBillingKeys(c *gin.Context) {
	resp, err := h.service.ListBillingKeys(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
