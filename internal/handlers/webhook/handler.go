// Package webhook implements the notification ingestion gate: it
// authenticates a batch of platform notifications, persists the raw payload
// before any fanout, deduplicates by psp reference and publishes one
// classified event per item.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/config"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/errors"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/metrics"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/observability"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/events"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

const HandlerName = "webhook"

// acknowledgment is the response body the platform expects on acceptance.
const acknowledgment = "[accepted]"

// BlobStore persists the raw batch payload before any event is published so
// a downstream failure never loses the original.
type BlobStore interface {
	PutObject(ctx context.Context, bucket, key string, body []byte) error
}

// Deduper claims a psp reference, reporting false when it was already
// claimed by an earlier delivery. A claim must be released when the item's
// publish fails, otherwise redelivery would skip the item and its event
// would be lost.
type Deduper interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type HandlerDependencies struct {
	HMACKey   string // hex-encoded shared secret
	Blobs     BlobStore
	Publisher events.Publisher
	Dedup     Deduper
	Logger    logger.Logger
	Obs       *observability.Observability
}

type Handler struct {
	config       *Config
	hmacKey      string
	blobs        BlobStore
	publisher    events.Publisher
	dedup        Deduper
	logger       logger.Logger
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
}

func NewHandler(appConfig *config.Config, custom *Config, deps HandlerDependencies) (*Handler, error) {
	handlerConfig := createConfigFromAppConfig(appConfig, custom)

	if err := handlerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for webhook handler: %w", err)
	}
	if deps.HMACKey == "" {
		return nil, fmt.Errorf("webhook handler requires an hmac key")
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:       handlerConfig,
		hmacKey:      deps.HMACKey,
		blobs:        deps.Blobs,
		publisher:    deps.Publisher,
		dedup:        deps.Dedup,
		logger:       log,
		obs:          deps.Obs,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

// HandleNotifications is the POST /webhooks/adyen entry point. The batch is
// all-or-nothing: one bad item rejects every item and the sender redelivers
// the whole batch.
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.fail(w, r, errors.NewMalformedPayloadError(err))
		return
	}

	notifications, err := parseBatch(body)
	if err != nil {
		h.fail(w, r, errors.NewMalformedPayloadError(err))
		return
	}

	if itemErrors := h.validateBatch(notifications); len(itemErrors) > 0 {
		metrics.WebhookBatchesRejected.Inc()
		h.recordBatch(ctx, startTime, "rejected")
		h.fail(w, r, errors.NewHMACVerificationFailedError(itemErrors))
		return
	}

	// Durability before fanout.
	key := rawPayloadKey(time.Now().UTC())
	if err := h.blobs.PutObject(ctx, h.config.WebhookBucket, key, body); err != nil {
		h.recordBatch(ctx, startTime, "failed")
		h.fail(w, r, errors.NewPayloadWriteFailedError(key, err))
		return
	}

	for _, n := range notifications {
		dedupKey := "webhook:psp:" + n.PSPReference
		claimed, err := h.dedup.SetNX(ctx, dedupKey, 1, h.config.DedupTTL)
		if err != nil {
			// Dedup is an optimization over at-least-once delivery; on a
			// dedup failure the item is processed rather than dropped.
			h.logger.Warn("dedup check failed, processing anyway", map[string]interface{}{
				"pspReference": n.PSPReference,
				"error":        err.Error(),
			})
			claimed = true
		}
		if !claimed {
			metrics.WebhookItemsDeduplicated.Inc()
			h.logger.Info("duplicate notification skipped", map[string]interface{}{
				"pspReference": n.PSPReference,
				"eventCode":    n.EventCode,
			})
			continue
		}

		category, _ := events.Classify(n.EventCode)
		event := models.VerificationEvent{
			EventID:      uuid.NewString(),
			Category:     category,
			Notification: n,
		}
		if err := h.publisher.Publish(ctx, event); err != nil {
			// Release the claim so the sender's redelivery publishes this
			// item instead of skipping it as a duplicate.
			if delErr := h.dedup.Del(ctx, dedupKey); delErr != nil {
				h.logger.Warn("failed to release dedup claim after publish failure", map[string]interface{}{
					"pspReference": n.PSPReference,
					"error":        delErr.Error(),
				})
			}
			h.recordBatch(ctx, startTime, "failed")
			h.fail(w, r, errors.NewEventPublishFailedError(category, err))
			return
		}

		metrics.WebhookItemsAccepted.WithLabelValues(category).Inc()
		if h.obs != nil {
			h.obs.RecordNotificationProcessed(ctx, "accepted")
		}
	}

	metrics.HandlerRequestsCompleted.WithLabelValues(HandlerName).Inc()
	metrics.HandlerRequestDuration.WithLabelValues(HandlerName).Observe(time.Since(startTime).Seconds())
	h.recordBatch(ctx, startTime, "accepted")

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(acknowledgment))
}

// validateBatch runs the per-item authenticity and shape checks. Any error
// rejects the whole batch.
func (h *Handler) validateBatch(notifications []models.WebhookNotification) []string {
	var itemErrors []string
	for i, n := range notifications {
		if n.PSPReference == "" {
			itemErrors = append(itemErrors, fmt.Sprintf("item[%d]: missing pspReference", i))
			continue
		}
		if n.EventCode == "" {
			itemErrors = append(itemErrors, fmt.Sprintf("item[%d]: missing eventCode", i))
			continue
		}
		if _, known := events.Classify(n.EventCode); !known {
			itemErrors = append(itemErrors, fmt.Sprintf("item[%d]: unknown event code %s", i, n.EventCode))
			continue
		}
		if signatureExempt(n) {
			continue
		}
		if err := VerifySignature(n, h.hmacKey); err != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("item[%d]: %s", i, err.Error()))
		}
	}
	return itemErrors
}

func (h *Handler) recordBatch(ctx context.Context, startTime time.Time, status string) {
	if h.obs != nil {
		h.obs.RecordBatchDuration(ctx, time.Since(startTime), status)
	}
}

// rawPayloadKey builds the time-partitioned blob key for a raw batch.
func rawPayloadKey(now time.Time) string {
	return fmt.Sprintf("webhooks/raw/%s/%s.json", now.Format("2006/01/02"), uuid.NewString())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	metrics.HandlerRequestsFailed.WithLabelValues(HandlerName, string(stdErr.Code)).Inc()
	h.errorHandler.WriteError(w, r, stdErr)
}
