package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"logo-mockup-studio/internal/catalog"
)

func (a *app) newStylesCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List mockup styles",
		Example: `  mockup styles
  mockup styles --category apparel --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			styles := catalog.ByCategory(category)
			if len(styles) == 0 {
				return exitWithCode(exitValidation, fmt.Errorf("no styles in category %q", category))
			}

			if a.jsonOutput {
				return a.printJSON(styles)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tNAME")
			for _, s := range styles {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Category, s.Name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category id (office, outdoor, apparel, print, vehicle, digital)")
	return cmd
}
