// Package onboarding implements the merchant submission handler: it
// validates the submitted profile, drives the entity-creation saga against
// the platform and returns a one-time hosted onboarding URL.
package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/config"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/errors"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/metrics"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/validation"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

const HandlerName = "onboarding"

type Handler struct {
	config       *Config
	logger       logger.Logger
	service      *Service
	errorHandler *errors.ErrorHandler
}

func NewHandler(appConfig *config.Config, custom *Config, deps ServiceDependencies) (*Handler, error) {
	handlerConfig := createConfigFromAppConfig(appConfig, custom)

	if err := handlerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for onboarding handler: %w", err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	deps.Logger = log

	return &Handler{
		config:       handlerConfig,
		logger:       log,
		service:      NewService(deps, handlerConfig),
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

// HandleSubmit is the POST /merchants/{merchantId}/onboarding entry point.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	merchantID := chi.URLParam(r, "merchantId")
	if merchantID == "" {
		h.fail(w, r, errors.NewValidationFailedError([]string{"merchantId: required path parameter missing"}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing onboarding submission", map[string]interface{}{
		"merchantId": merchantID,
		"handler":    HandlerName,
	})

	input, err := h.parseInput(r, merchantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	output, err := h.service.Execute(ctx, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metrics.HandlerRequestsCompleted.WithLabelValues(HandlerName).Inc()
	metrics.HandlerRequestDuration.WithLabelValues(HandlerName).Observe(time.Since(startTime).Seconds())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(output)
}

func (h *Handler) parseInput(r *http.Request, merchantID string) (*Input, error) {
	var raw map[string]interface{}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.NewMalformedPayloadError(err)
	}

	schema := GetInputSchema()
	result := validation.ValidateInput(raw, schema)
	if !result.Valid {
		return nil, errors.NewValidationFailedError(result.GetErrorMessages())
	}

	// Round-trip through JSON to get the typed submission.
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.NewMalformedPayloadError(err)
	}
	var submission models.OnboardingSubmission
	if err := json.Unmarshal(buf, &submission); err != nil {
		return nil, errors.NewMalformedPayloadError(err)
	}

	if errs := ValidateSubmission(&submission); len(errs) > 0 {
		return nil, errors.NewValidationFailedError(errs)
	}

	return &Input{MerchantID: merchantID, Submission: submission}, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	metrics.HandlerRequestsFailed.WithLabelValues(HandlerName, string(stdErr.Code)).Inc()
	h.errorHandler.WriteError(w, r, stdErr)
}
