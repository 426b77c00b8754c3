// Package verification implements the capability verification state
// machine. It consumes classified events fanned out by the ingestion gate,
// tracks the six capability flags, creates the payout sweep when everything
// is in place and flips the merchant record to its terminal status.
package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/config"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/errors"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/metrics"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

const (
	HandlerName           = "verification"
	CompletionHandlerName = "verification-completion"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	service      *Service
	errorHandler *errors.ErrorHandler
}

func NewHandler(appConfig *config.Config, custom *Config, deps ServiceDependencies) (*Handler, error) {
	handlerConfig := createConfigFromAppConfig(appConfig, custom)

	if err := handlerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for verification handler: %w", err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	deps.Logger = log

	return &Handler{
		config:       handlerConfig,
		logger:       log,
		service:      NewService(deps),
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

// HandleEvent is the webhook-variant entry point, fed by the event bus.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, HandlerName, h.service.HandleAccountHolderUpdated)
}

// HandleCompletion is the completion-variant entry point; it additionally
// requires the merchant's tax identifier before the sweep may be created.
func (h *Handler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, CompletionHandlerName, h.service.HandleOnboardingCompleted)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, name string, process func(context.Context, models.WebhookNotification) error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	var event models.VerificationEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.fail(w, r, name, errors.NewMalformedPayloadError(err))
		return
	}

	h.logger.Info("processing verification event", map[string]interface{}{
		"handler":         name,
		"eventId":         event.EventID,
		"category":        event.Category,
		"eventCode":       event.Notification.EventCode,
		"accountHolderId": event.Notification.AccountHolderID,
	})

	if err := process(ctx, event.Notification); err != nil {
		h.fail(w, r, name, err)
		return
	}

	metrics.HandlerRequestsCompleted.WithLabelValues(name).Inc()
	metrics.HandlerRequestDuration.WithLabelValues(name).Observe(time.Since(startTime).Seconds())

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, name string, err error) {
	stdErr := errors.Normalize(err)
	metrics.HandlerRequestsFailed.WithLabelValues(name, string(stdErr.Code)).Inc()
	h.errorHandler.WriteError(w, r, stdErr)
}
