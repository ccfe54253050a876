package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
	nonce_postgres "github.com/code-payments/coupon-server/pkg/coupon/data/nonce/postgres"
	"github.com/code-payments/coupon-server/pkg/metrics"
)

const noncePruneEventName = "CouponRedemptionNoncePrune"

func init() {
	rootCmd.AddCommand(nonceCmd)
	nonceCmd.AddCommand(noncePruneCmd)

	noncePruneCmd.Flags().Bool("once", false, "Prune once and exit instead of running on the configured schedule")
}

var nonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "Maintain the redemption replay ledger",
}

var noncePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired redemption nonces from postgres",
	Long: `Delete redemption nonces whose proofs can no longer be presented. By
default this runs on the nonce_prune_schedule cron expression until
interrupted. Redis nonces expire on their own and need no pruning.`,
	Args: cobra.NoArgs,
	RunE: runNoncePrune,
}

func runNoncePrune(cmd *cobra.Command, _ []string) error {
	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.requirePostgres(); err != nil {
		return err
	}

	store := nonce_postgres.New(e.db)
	ctx := e.context(cmd.Context())

	once, _ := cmd.Flags().GetBool("once")
	if once {
		_, err := pruneNonces(ctx, e.log, store, time.Now())
		return err
	}

	job := cron.New(cron.WithLocation(time.UTC))
	_, err = job.AddFunc(e.config.NoncePruneSchedule, func() {
		pruneNonces(ctx, e.log, store, time.Now())
	})
	if err != nil {
		return err
	}

	e.log.WithField("schedule", e.config.NoncePruneSchedule).Info("starting nonce prune cron")
	job.Start()

	<-ctx.Done()
	<-job.Stop().Done()
	return nil
}

func pruneNonces(ctx context.Context, log *logrus.Entry, store nonce.Store, now time.Time) (uint64, error) {
	pruned, err := store.PruneExpired(ctx, now)
	if err != nil {
		log.WithError(err).Warn("failure pruning expired nonces")
		return 0, err
	}

	log.WithField("pruned", pruned).Info("pruned expired nonces")
	metrics.RecordCount(ctx, noncePruneEventName, pruned)
	return pruned, nil
}
