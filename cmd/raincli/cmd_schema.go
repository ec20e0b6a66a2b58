package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"raincast/internal/schema"
)

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List the input fields",
		Long:  `List every input field with its control, range or choices, and default.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(schema.Fields())
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tLABEL\tCONTROL\tRANGE\tDEFAULT")
			for _, f := range schema.Fields() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					f.Name, s.loc.FieldLabel(f.Name), f.Control, describeRange(f), describeDefault(f))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the schema as JSON")
	return cmd
}

func describeRange(f schema.Field) string {
	if f.IsNumeric() {
		return schema.FormatBound(f.Min) + ".." + schema.FormatBound(f.Max)
	}
	if len(f.Choices) > 4 {
		return fmt.Sprintf("%d choices", len(f.Choices))
	}
	return strings.Join(f.Choices, "|")
}

func describeDefault(f schema.Field) string {
	if f.IsNumeric() {
		return schema.FormatBound(f.Default)
	}
	return f.DefaultChoice
}
