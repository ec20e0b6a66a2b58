package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"raincast/internal/schema"
)

// newCheckModelCmd loads the model and runs the default record through it,
// so a broken artifact is caught before the server is deployed with it.
func newCheckModelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-model",
		Short: "Load the model and report whether it is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}

			h := s.loadModel(cmd.Context())
			if err := h.Err(); err != nil {
				return fmt.Errorf("%s (%s): %w", s.loc.T("app.model_error"), h.Source(), err)
			}

			pred, err := h.Predict(cmd.Context(), schema.Defaults())
			if err != nil {
				return fmt.Errorf("%s (%s): %w", s.loc.T("result.error"), h.Source(), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", s.loc.T("app.model_loaded"), h.Source())
			fmt.Fprintf(out, "%s: %s\n", s.loc.T("result.rain_probability"), s.loc.Percent(pred.RainProbability()))
			return nil
		},
	}
}
