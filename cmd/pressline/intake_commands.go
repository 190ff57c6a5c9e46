package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pressline/internal/apiclient"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "submit <content-id> [file|-]",
		Short: "Submit one raw content item (JSON object) for intake",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 2 {
				source = args[1]
			}
			raw, err := readJSONInput(cmd.InOrStdin(), source)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *apiclient.Client) error {
				result, err := client.Submit(c, args[0], raw)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if !result.Success {
					return fmt.Errorf("intake of %s failed: %s", args[0], result.Error)
				}
				fmt.Fprintf(out, "Item %s accepted (%s, %d ms)\n", result.ContentID, formatStatusLabel(result.FinalStatus), result.ProcessingTimeMS)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "batch [file|-]",
		Short: "Submit a batch envelope of insert operations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			envelope, err := readJSONInput(cmd.InOrStdin(), source)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *apiclient.Client) error {
				resp, err := client.Batch(c, envelope)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				rows := make([][]string, 0, len(resp.Results))
				for _, res := range resp.Results {
					outcome := "ok"
					if !res.Success {
						outcome = strings.TrimSpace(res.ErrorKind + ": " + res.Error)
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", res.Index),
						res.Table,
						fmt.Sprintf("%d", res.InsertedRecords),
						outcome,
					})
				}
				out := cmd.OutOrStdout()
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"#", "Table", "Inserted", "Outcome"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
					))
				}
				fmt.Fprintf(out, "%d of %d operations succeeded, %d records inserted\n",
					resp.SuccessfulOperations, resp.TotalOperations, resp.TotalInsertedRecords)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// readJSONInput reads a JSON document from path, or stdin when path is "-".
func readJSONInput(stdin io.Reader, path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if strings.TrimSpace(path) == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("input from %s is not valid JSON", describeSource(path))
	}
	return json.RawMessage(data), nil
}

func describeSource(path string) string {
	if strings.TrimSpace(path) == "-" {
		return "stdin"
	}
	return path
}
