package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-raffle/internal/auth"
	"ms-raffle/internal/kafka"
	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
	"ms-raffle/internal/payment/services"
	"ms-raffle/internal/payment/storage"
	"ms-raffle/internal/utils"

	"github.com/gin-gonic/gin"
)

type StripeHandler struct {
	stripeService *services.StripeService
	paymentStore  storage.Store
	producer      *kafka.Producer
	currency      string
	logger        *logger.Logger
}

func NewStripeHandler(stripeService *services.StripeService, paymentStore storage.Store, producer *kafka.Producer, currency string, logger *logger.Logger) *StripeHandler {
	if currency == "" {
		currency = "usd"
	}
	return &StripeHandler{
		stripeService: stripeService,
		paymentStore:  paymentStore,
		producer:      producer,
		currency:      currency,
		logger:        logger,
	}
}

// ValidateCard validates credit card details without creating a charge
func (h *StripeHandler) ValidateCard(c *gin.Context) {
	var req models.StripeCardValidationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	// Map StripeCardDetails to StripeCard
	card := &models.StripeCard{
		Number:   req.Card.Number,
		ExpMonth: req.Card.ExpMonth,
		ExpYear:  req.Card.ExpYear,
		CVC:      req.Card.CVC,
		Name:     req.Card.Name,
	}
	result, err := h.stripeService.ValidateCard(card)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Card validation failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Card validation result", result))
}

// ProcessPayment captures a card payment through Stripe and records the
// result. The returned payment_id is the payment_ref a purchase request
// presents to checkout.
func (h *StripeHandler) ProcessPayment(c *gin.Context) {
	var req models.StripePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	// Prefer the caller's bearer token over a user_id in the body
	if token, err := auth.ExtractTokenFromRequest(c.Request); err == nil {
		if sub, err := auth.ExtractUserIDFromJWT(token); err == nil {
			req.UserID = sub
		}
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", "user_id is required"))
		return
	}

	// Set default currency if not provided
	if req.Currency == "" {
		req.Currency = h.currency
	}

	// Validate token or card is provided
	if req.Token == "" && req.Card == nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", "Either token or card must be provided"))
		return
	}

	if req.PaymentID == "" {
		req.PaymentID = utils.GenerateID()
	}

	// Record the attempt first so a Stripe timeout still leaves an auditable
	// pending row.
	record := &models.Payment{
		PaymentID:   req.PaymentID,
		UserID:      req.UserID,
		Status:      models.StatusPending,
		Amount:      req.Amount,
		Currency:    req.Currency,
		CreatedDate: time.Now(),
	}
	if err := h.paymentStore.SavePayment(record); err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to record payment", err.Error()))
		return
	}

	// Process payment through Stripe
	result, err := h.stripeService.ProcessPayment(c.Request.Context(), &req)
	if err != nil {
		record.Status = models.StatusFailed
		record.UpdatedDate = time.Now()
		if updateErr := h.paymentStore.UpdatePayment(record); updateErr != nil {
			h.logger.Error("PAYMENT", fmt.Sprintf("Failed to mark payment %s failed: %v", record.PaymentID, updateErr))
		}
		h.publishPaymentEvent(record)
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Payment processing failed", err.Error()))
		return
	}

	// Persist the Stripe outcome; checkout verifies against this row.
	record.Status = result.Status
	record.TransactionID = result.TransactionID
	record.UpdatedDate = time.Now()
	if err := h.paymentStore.UpdatePayment(record); err != nil {
		// The Stripe charge went through, so log and keep going.
		h.logger.Error("PAYMENT", fmt.Sprintf("Failed to update payment record %s: %v", record.PaymentID, err))
	}

	h.publishPaymentEvent(record)

	response := map[string]interface{}{
		"stripe_result":  result,
		"payment_record": record,
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment processed", response))
}

// GetPayment returns one recorded payment by id
func (h *StripeHandler) GetPayment(c *gin.Context) {
	paymentID := c.Param("paymentId")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request", "payment_id is required"))
		return
	}

	payment, err := h.paymentStore.GetPayment(paymentID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Payment not found", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment retrieved", payment))
}

// ListPayments returns a user's recorded payments, newest first
func (h *StripeHandler) ListPayments(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request", "user_id is required"))
		return
	}

	payments, err := h.paymentStore.ListPayments(userID, 50, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list payments", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payments retrieved", payments))
}

// publishPaymentEvent streams the payment outcome to Kafka. Failures are
// logged only; the HTTP response reflects the capture, not the stream.
func (h *StripeHandler) publishPaymentEvent(record *models.Payment) {
	if h.producer == nil {
		return
	}

	eventType := "payment.failed"
	topic := kafka.TopicPaymentFailed
	if record.Status == models.StatusSuccess {
		eventType = "payment.success"
		topic = kafka.TopicPaymentSucceeded
	}

	event := &models.PaymentEvent{
		Type:      eventType,
		PaymentID: record.PaymentID,
		Payment:   record,
		Timestamp: time.Now(),
	}

	eventData, _ := json.Marshal(event)
	if err := h.producer.Publish(topic, record.PaymentID, eventData); err != nil {
		h.logger.Error("KAFKA", fmt.Sprintf("Failed to publish payment event for %s: %v", record.PaymentID, err))
	} else {
		h.logger.Info("KAFKA", fmt.Sprintf("Payment event published for payment %s with status %s", record.PaymentID, record.Status))
	}
}
