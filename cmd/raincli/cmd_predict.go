package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"raincast/internal/i18n"
	"raincast/internal/present"
	"raincast/internal/schema"
)

// barWidth is the number of cells in the text confidence bar.
const barWidth = 20

// flagSource reads field values from the flags the user actually set, so
// every other field keeps its default. Yes/no fields also accept the answer
// labels of the display language ("Так" under --lang uk).
type flagSource struct {
	flags *pflag.FlagSet
	loc   *i18n.Localizer
}

func (s flagSource) Lookup(name string) (string, bool) {
	f := s.flags.Lookup(name)
	if f == nil || !f.Changed {
		return "", false
	}
	v := strings.TrimSpace(f.Value.String())
	if field, ok := schema.Lookup(name); ok && field.Kind == schema.KindBinary && s.loc != nil {
		switch {
		case strings.EqualFold(v, s.loc.YesNo(true)):
			return schema.BinaryYes, true
		case strings.EqualFold(v, s.loc.YesNo(false)):
			return schema.BinaryNo, true
		}
	}
	return v, true
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict whether it will rain tomorrow",
		Long: `Predict whether it will rain tomorrow. Each input field is a flag named
after its column (--MinTemp, --Location, --RainToday ...); unset fields take
their defaults. Run "raincli schema" for ranges and choices.`,
		Example: `  raincli predict --Location Sydney --Humidity3pm 85 --RainToday yes
  raincli predict --lang uk --model models/rain_model.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			rec, errs := schema.Collect(flagSource{flags: cmd.Flags(), loc: s.loc})
			if len(errs) > 0 {
				return errs
			}
			h := s.loadModel(cmd.Context())
			if err := h.Err(); err != nil {
				return fmt.Errorf("%s: %w", s.loc.T("app.model_error"), err)
			}

			out := cmd.OutOrStdout()
			printSummary(out, schema.Summary(rec, s.loc), s.loc)

			pred, err := h.Predict(cmd.Context(), rec)
			if err != nil {
				return fmt.Errorf("%s: %w", s.loc.T("result.error"), err)
			}
			printResult(out, present.Present(pred, s.loc), s.loc)
			return nil
		},
	}

	for _, f := range schema.Fields() {
		cmd.Flags().String(f.Name, "", usageFor(f))
	}
	return cmd
}

func usageFor(f schema.Field) string {
	if f.Kind == schema.KindBinary {
		return fmt.Sprintf("%s [0/1, yes/no or the localized Yes/No] (default %s)", f.Name, describeDefault(f))
	}
	return fmt.Sprintf("%s [%s] (default %s)", f.Name, describeRange(f), describeDefault(f))
}

func printSummary(w io.Writer, rows []schema.SummaryRow, loc *i18n.Localizer) {
	width := 0
	for _, r := range rows {
		width = max(width, len([]rune(r.Label)))
	}

	fmt.Fprintln(w, loc.T("summary.title"))
	for _, r := range rows {
		pad := strings.Repeat(" ", width-len([]rune(r.Label)))
		fmt.Fprintf(w, "  %s%s  %s\n", r.Label, pad, r.Value)
	}
	fmt.Fprintln(w)
}

func printResult(w io.Writer, v present.View, loc *i18n.Localizer) {
	fmt.Fprintf(w, "%s - %s\n", v.Headline, v.Detail)
	fmt.Fprintf(w, "%s: %s\n", loc.T("result.rain_probability"), v.RainPercent)
	fmt.Fprintf(w, "%s: %s\n", loc.T("result.dry_probability"), v.DryPercent)
	fmt.Fprintf(w, "%s: %s %d%%\n", loc.T("result.confidence"), v.TextBar(barWidth), v.BarPercent)
	fmt.Fprintf(w, "%s: %s\n", loc.T("result.insights"), v.Advisory)
}
