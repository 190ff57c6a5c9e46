package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pressline/internal/extract"
	"pressline/internal/logging"
	"pressline/internal/taxonomy"
)

func newExtractCommand() *cobra.Command {
	var required []string
	var classification bool
	cmd := &cobra.Command{
		Use:         "extract [file|-]",
		Short:       "Recover a JSON object from free-form model output",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			var (
				data []byte
				err  error
			)
			if source == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(source)
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			keys := required
			if classification {
				keys = append(keys, extract.ClassificationShape...)
			}
			var target map[string]any
			strategy, err := extract.New(keys...).Extract(commandCtx(cmd), string(data), &target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "recovered with %s strategy\n", strategy)
			return writeJSON(cmd, target)
		},
	}
	cmd.Flags().StringSliceVar(&required, "require", nil, "Top-level keys the object must contain")
	cmd.Flags().BoolVar(&classification, "classification", false, "Require the classifier response keys")
	return cmd
}

func newTaxonomyCommand(ctx *commandContext) *cobra.Command {
	taxCmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Inspect the category taxonomy",
	}
	taxCmd.AddCommand(newTaxonomyListCommand(ctx))
	taxCmd.AddCommand(newTaxonomyResolveCommand(ctx))
	return taxCmd
}

func (c *commandContext) loadTaxonomy() (*taxonomy.Taxonomy, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return taxonomy.Load(cfg.Intake.TaxonomyPath)
}

func newTaxonomyListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List canonical categories and their design rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			tax, err := ctx.loadTaxonomy()
			if err != nil {
				return err
			}
			names := tax.Names()
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				cat, _ := tax.Lookup(name)
				label := name
				if name == tax.Default {
					label += " (default)"
				}
				rows = append(rows, []string{label, cat.Design.Template, cat.Design.Layout, cat.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Category", "Template", "Layout", "Description"},
				rows,
				nil,
			))
			return nil
		},
	}
}

func newTaxonomyResolveCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve <input>...",
		Short: "Map free-form category names onto the taxonomy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tax, err := ctx.loadTaxonomy()
			if err != nil {
				return err
			}
			normalizer := taxonomy.NewNormalizer(tax, logging.NewNop())
			results := make([]taxonomy.Resolution, 0, len(args))
			for _, input := range args {
				results = append(results, normalizer.Resolve(commandCtx(cmd), input))
			}
			if asJSON {
				return writeJSON(cmd, results)
			}
			rows := make([][]string, 0, len(results))
			for _, res := range results {
				rows = append(rows, []string{res.Input, res.Canonical, formatStatusLabel(string(res.Match))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Input", "Category", "Match"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
