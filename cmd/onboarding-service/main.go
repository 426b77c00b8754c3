package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/adyen"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/api"
	commonaws "github.com/vtem-rh/payersync-be-test-sub000/internal/common/aws"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/config"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/database"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/errors"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/observability"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/events"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/handlers/onboarding"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/handlers/verification"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/handlers/webhook"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/notifier"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	appLogger := logger.NewZapAdapter(zapLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// AWS collaborators.
	secrets, err := commonaws.NewSecretsClient(ctx, cfg.AWS.Region)
	if err != nil {
		log.Fatalf("failed to create secrets client: %v", err)
	}
	snsClient, err := commonaws.NewSNSClient(ctx, cfg.AWS.Region)
	if err != nil {
		log.Fatalf("failed to create sns client: %v", err)
	}
	s3Client, err := commonaws.NewS3Client(ctx, cfg.AWS.Region)
	if err != nil {
		log.Fatalf("failed to create s3 client: %v", err)
	}
	sesClient, err := commonaws.NewSESClient(ctx, cfg.AWS.Region)
	if err != nil {
		log.Fatalf("failed to create ses client: %v", err)
	}
	records, err := store.NewDynamoStore(ctx, cfg.AWS.Region, cfg.AWS.DynamoDB.MerchantTable, cfg.AWS.DynamoDB.AccountHolderIndex)
	if err != nil {
		log.Fatalf("failed to create record store: %v", err)
	}

	// Credential resolution is fatal: nothing can be authenticated without it.
	apiKey, err := secrets.GetSecretString(ctx, cfg.Adyen.APIKeySecretName)
	if err != nil {
		log.Fatalf("%v", errors.NewCredentialResolutionError(cfg.Adyen.APIKeySecretName, err))
	}
	hmacKey, err := secrets.GetSecretString(ctx, cfg.Adyen.HMACKeySecretName)
	if err != nil {
		log.Fatalf("%v", errors.NewCredentialResolutionError(cfg.Adyen.HMACKeySecretName, err))
	}

	redisClient, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to create redis client: %v", err)
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		log.Fatalf("redis unreachable: %v", err)
	}

	adyenClient := adyen.NewClient(adyen.Config{
		LEMBaseURL:             cfg.Adyen.LEMBaseURL,
		BalancePlatformBaseURL: cfg.Adyen.BalancePlatformBaseURL,
		ManagementBaseURL:      cfg.Adyen.ManagementBaseURL,
		MerchantAccount:        cfg.Adyen.MerchantAccount,
		BalancePlatform:        cfg.Adyen.BalancePlatform,
		APIKey:                 apiKey,
		Timeout:                time.Duration(cfg.Adyen.Timeout) * time.Millisecond,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	publisher := events.NewSNSPublisher(snsClient, cfg.AWS.SNS.WebhookTopicARN)

	var changeNotifier notifier.ChangeNotifier = notifier.NoopNotifier{}
	if cfg.Notifications.Enabled && cfg.AWS.SES.Enabled {
		changeNotifier = notifier.NewSESNotifier(
			sesClient,
			cfg.AWS.SES.FromEmail,
			cfg.AWS.SES.ToEmail,
			cfg.Notifications.Subject,
			appLogger,
		)
	}

	onboardingHandler, err := onboarding.NewHandler(cfg, nil, onboarding.ServiceDependencies{
		Platform: adyenClient,
		Records:  records,
		Logger:   appLogger,
	})
	if err != nil {
		log.Fatalf("failed to create onboarding handler: %v", err)
	}

	webhookHandler, err := webhook.NewHandler(cfg, nil, webhook.HandlerDependencies{
		HMACKey:   hmacKey,
		Blobs:     s3Client,
		Publisher: publisher,
		Dedup:     redisClient,
		Logger:    appLogger,
		Obs:       obs,
	})
	if err != nil {
		log.Fatalf("failed to create webhook handler: %v", err)
	}

	verificationHandler, err := verification.NewHandler(cfg, nil, verification.ServiceDependencies{
		Platform: adyenClient,
		Records:  records,
		Notifier: changeNotifier,
		Logger:   appLogger,
	})
	if err != nil {
		log.Fatalf("failed to create verification handler: %v", err)
	}

	router := api.NewRouter(onboardingHandler, webhookHandler, verificationHandler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		appLogger.Info("server listening", map[string]interface{}{
			"addr":        server.Addr,
			"environment": cfg.App.Environment,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
