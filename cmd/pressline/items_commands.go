package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pressline/internal/apiclient"
	"pressline/internal/content"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	itemsCmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short:   "Inspect content items",
	}
	itemsCmd.AddCommand(newItemsListCommand(ctx))
	itemsCmd.AddCommand(newItemsShowCommand(ctx))
	itemsCmd.AddCommand(newItemsHistoryCommand(ctx))
	return itemsCmd
}

func newItemsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit, offset int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, value := range statuses {
				for _, part := range strings.Split(value, ",") {
					if strings.TrimSpace(part) == "" {
						continue
					}
					if _, err := content.ParseStatus(part); err != nil {
						return err
					}
				}
			}
			return ctx.withClient(cmd, func(c context.Context, client *apiclient.Client) error {
				items, err := client.Items(c, apiclient.ListOptions{Statuses: statuses, Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No items found")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Status", "Category", "Confidence", "Updated"},
					buildItemListRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable or comma separated)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of items to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newItemsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <content-id>",
		Short: "Show one item with its derived fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *apiclient.Client) error {
				item, err := client.Item(c, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, item)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				title := fmt.Sprintf("Item %s", item.ContentID)
				if colorize {
					title = statusKindStyle(itemStatusKind(item.Status, item.Terminal, item.AwaitingReview)).Render(title)
				}
				fmt.Fprintln(out, renderPanel(title, itemDetailLines(*item), colorize))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newItemsHistoryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history <content-id>",
		Short: "Show the stage log for one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *apiclient.Client) error {
				history, err := client.History(c, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, history)
				}
				out := cmd.OutOrStdout()
				if len(history.Records) == 0 {
					fmt.Fprintf(out, "No stage attempts recorded for %s\n", history.ContentID)
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Stage", "Attempt", "Outcome", "Started", "Duration"},
					buildHistoryRows(history.Records),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
