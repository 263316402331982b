package handler

import (
	"collections-engine/internal/api/handler/dto"
	"collections-engine/internal/domain/payment"
	"collections-engine/internal/pkg/apperrors"
	"fmt"
	"log/slog"
	"net/http"
)

// WebhookHandler receives inbound channel callbacks from the messaging
// gateway. It always answers 200 with a reply body; the gateway relays the
// reply text back to the customer, so internal errors must never leak here.
type WebhookHandler struct {
	service payment.PaymentService
	logger  *slog.Logger
}

func NewWebhookHandler(s payment.PaymentService, l *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: s,
		logger:  l.With("component", "WebhookHandler"),
	}
}

// HandleInboundMessage handles POST /webhooks/inbound.
//
// @Summary Receive an inbound customer message
// @Description Correlates the sender's phone number to a pending payment transaction and interprets the message body as a confirmation attempt. The response body carries the reply text to relay to the customer.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body dto.InboundMessageRequest true "Inbound message payload"
// @Success 200 {object} dto.InboundMessageResponse "Reply to relay to the sender"
// @Failure 400 {object} dto.ErrorResponse "Malformed payload"
// @Router /webhooks/inbound [post]
func (h *WebhookHandler) HandleInboundMessage(w http.ResponseWriter, r *http.Request) {
	var req dto.InboundMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Malformed inbound webhook payload", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	reply := h.service.HandleInboundReply(r.Context(), req.From, req.Body)
	respondJSON(w, http.StatusOK, dto.InboundMessageResponse{Reply: reply})
}
