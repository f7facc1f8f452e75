package v1

import (
	"io"
	"net/http"

	"github.com/facto/facto/internal/api/dto"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/service"
	"github.com/facto/facto/internal/types"
	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	service service.CheckoutService
	logger  *logger.Logger
}

func NewCheckoutHandler(service service.CheckoutService, logger *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger,
	}
}

// @Summary Create a checkout session
// @Description Create a Stripe subscription checkout session and return its URL
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body dto.CreateCheckoutSessionRequest true "Checkout session"
// @Success 200 {object} dto.CreateCheckoutSessionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /create-checkout-session [post]
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	var req dto.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	// a verified token wins over whatever the body claims
	ctx := c.Request.Context()
	if uid := types.GetUserID(ctx); uid != "" {
		req.UID = uid
		if req.Email == "" {
			req.Email = types.GetUserEmail(ctx)
		}
	}

	resp, err := h.service.CreateSession(ctx, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Confirm a checkout session
// @Description Report whether a checkout session has been paid. An unpaid session is not an error.
// @Tags Checkout
// @Produce json
// @Param session_id query string true "Checkout session id"
// @Success 200 {object} dto.ConfirmCheckoutSessionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /checkout/confirm [get]
func (h *CheckoutHandler) ConfirmCheckoutSession(c *gin.Context) {
	resp, err := h.service.ConfirmSession(c.Request.Context(), c.Query(types.QuerySessionID))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
