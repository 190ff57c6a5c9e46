package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pressline/internal/api"
	"pressline/internal/apiclient"
	"pressline/internal/stagelog"
)

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "trigger <stage> <content-id>",
		Short: "Run one pipeline stage for one item",
		Long: "Run one pipeline stage for one item. Stages: " +
			strings.Join(stageNames(), ", ") + ".\n" +
			"A stage that already succeeded for the item's current status is replayed unless --force is set.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := stagelog.ParseStage(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *apiclient.Client) error {
				outcome, err := client.Trigger(c, string(stage), args[1], force)
				if outcome == nil {
					return err
				}
				if asJSON {
					if jsonErr := writeJSON(cmd, outcome); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				printTriggerOutcome(cmd, *outcome)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Start a new attempt even when the stage already succeeded")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printTriggerOutcome(cmd *cobra.Command, outcome api.TriggerResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	label := fmt.Sprintf("%s %s", outcome.Stage, outcome.ContentID)
	switch {
	case outcome.Failed:
		fmt.Fprintln(out, renderStatusLine(label, statusError, fmt.Sprintf("%s (%s)", outcome.Error, outcome.ErrorKind), colorize))
	case outcome.Skipped:
		fmt.Fprintln(out, renderStatusLine(label, statusInfo, "already completed; replayed attempt "+outcome.AttemptID, colorize))
	case outcome.Held:
		fmt.Fprintln(out, renderStatusLine(label, statusWarn, "held: "+outcome.Reason, colorize))
	default:
		message := fmt.Sprintf("%s -> %s in %d ms", formatStatusLabel(outcome.PreviousStatus), formatStatusLabel(outcome.Status), outcome.DurationMS)
		fmt.Fprintln(out, renderStatusLine(label, statusOK, message, colorize))
	}
}

func stageNames() []string {
	stages := stagelog.Canonical()
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}

func newApproveCommand(ctx *commandContext) *cobra.Command {
	return newDecisionCommand(ctx, "approve", "Release a quality-approved or reviewed item for publishing",
		func(c context.Context, client *apiclient.Client, id, reason string) (*api.Item, error) {
			return client.Approve(c, id, reason)
		})
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	return newDecisionCommand(ctx, "review", "Route an item to manual review",
		func(c context.Context, client *apiclient.Client, id, reason string) (*api.Item, error) {
			return client.Review(c, id, reason)
		})
}

type decisionFunc func(context.Context, *apiclient.Client, string, string) (*api.Item, error)

func newDecisionCommand(ctx *commandContext, use, short string, decide decisionFunc) *cobra.Command {
	var reason string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   use + " <content-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *apiclient.Client) error {
				item, err := decide(c, client, args[0], reason)
				if err != nil {
					return err
				}
				return printItemTransition(cmd, *item, asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the decision")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "retry <content-id>",
		Short: "Return a failed item to the start of the stage that failed it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *apiclient.Client) error {
				item, err := client.Retry(c, args[0])
				if err != nil {
					return err
				}
				return printItemTransition(cmd, *item, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printItemTransition(cmd *cobra.Command, item api.Item, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, api.ItemResponse{Item: item})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Item %s is now %s\n", item.ContentID, formatStatusLabel(item.Status))
	return nil
}
