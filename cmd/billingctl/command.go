package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/freelancedesk/app/repository"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/billing"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/cache"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/database"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/env"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/logging"
)

// serviceFactory builds the billing service the subcommands operate on.
type serviceFactory func() (*billing.Service, error)

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "billingctl",
		Short:        "Operate the billing reconciliation subsystem",
		SilenceUsage: true,
	}
	newService := func() (*billing.Service, error) {
		env.SetupEnvFile()
		logger, err := logging.New()
		if err != nil {
			return nil, err
		}
		db := database.SetupDatabase(logger)
		cfg := billing.ConfigFromEnv()
		return billing.NewService(cfg, billing.Dependencies{
			Repos:    repository.NewRepositories(db),
			Provider: billing.NewStripeProvider(cfg.SecretKey),
			Redis:    cache.SetupCache(logger),
			Logger:   logger,
		}), nil
	}
	root.AddCommand(
		replayCommand(newService),
		subscriptionCommand(newService),
		invalidatePlansCommand(newService),
	)
	return root
}

func replayCommand(newService serviceFactory) *cobra.Command {
	var limit int
	var id string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-dispatch stored webhook deliveries whose processing failed",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if id != "" {
				result, err := svc.Replay(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", result.EventID, result.EventType, result.Outcome)
				return nil
			}

			report, err := svc.ReplayFailed(cmd.Context(), limit)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return err
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d of %d deliveries still failing", len(report.Failures), report.Attempted)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of failed deliveries to replay")
	cmd.Flags().StringVar(&id, "id", "", "replay a single delivery by its id")
	return cmd
}

func printReport(w io.Writer, report *billing.ReplayReport) {
	fmt.Fprintf(w, "attempted=%d succeeded=%d failed=%d\n", report.Attempted, report.Succeeded, len(report.Failures))
	ids := make([]string, 0, len(report.Failures))
	for id := range report.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s: %s\n", id, report.Failures[id])
	}
}

func subscriptionCommand(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "subscription <user-id>",
		Short: "Print the subscription used for feature gating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			current, err := svc.CurrentSubscription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(current)
		},
	}
}

func invalidatePlansCommand(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate-plans",
		Short: "Drop the cached plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.InvalidatePlanCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "plan cache invalidated")
			return nil
		},
	}
}
