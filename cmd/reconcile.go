package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dietapronta/checkout-funnel/internal/leadstore"
	"github.com/dietapronta/checkout-funnel/internal/processor"
	"github.com/dietapronta/checkout-funnel/internal/reconcile"
	"github.com/dietapronta/checkout-funnel/pkg/logger"

	"github.com/spf13/cobra"
)

// reconcileCmd re-runs the resolution and propagation path for one
// payment id, for when a webhook delivery was lost and the lead store
// is out of date.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile [payment-id]",
	Short: "Manually reconcile a payment",
	Long:  `Fetch a payment from the processor and push its current status to the lead store.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReconcile(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "reconcile failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runReconcile(paymentID string) error {
	config, err := loadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.L()

	processorClient := processor.NewClient(processor.Config{
		BaseURL:     config.Processor.BaseURL,
		AccessToken: config.Processor.AccessToken,
		Timeout:     config.Processor.Timeout,
	}, log)

	leadStoreClient := leadstore.NewClient(leadstore.Config{
		SaveLeadURL:     config.LeadStore.SaveLeadURL,
		UpdateStatusURL: config.LeadStore.UpdateStatusURL,
		Secret:          config.LeadStore.Secret,
		Timeout:         config.LeadStore.Timeout,
	}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolver := reconcile.NewResolver(
		processorClient,
		config.Reconcile.OrderRetryAttempts,
		config.Reconcile.OrderRetryBackoff,
		log,
	)
	propagator := reconcile.NewPropagator(leadStoreClient, log)

	service := reconcile.NewService(
		reconcile.NewMemoryLedger(1),
		resolver,
		propagator,
		nil,
		nil,
		config.Reconcile.ReverifyOffsets,
		log,
	)
	defer service.Shutdown()

	payment, err := resolver.Resolve(ctx, "payment", paymentID)
	if err != nil {
		return fmt.Errorf("could not resolve payment %s: %w", paymentID, err)
	}

	log.Info("payment resolved",
		"payment_id", payment.ID,
		"status", payment.Status,
		"reference", payment.ExternalReference)

	if err := service.PropagatePayment(ctx, payment); err != nil {
		return fmt.Errorf("could not propagate status: %w", err)
	}

	fmt.Printf("payment %d propagated with status %s\n", payment.ID, payment.Status)
	return nil
}
