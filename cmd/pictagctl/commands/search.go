package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Rank stored images against a text query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			if limit == 0 {
				limit = cfg.Search.DefaultLimit
			}

			results, err := a.Search.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err //nolint:wrapcheck // shown to the user as is
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for i := range results {
				r := &results[i]
				marker := " "
				if r.Exact() {
					marker = "="
				}
				fmt.Fprintf(out, "[%.3f]%s %d %s %s tags=%s\n",
					r.Score(), marker, r.ID(), r.Filename(), r.URL(), strings.Join(r.Tags(), ","))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (0 = configured default)")
	return cmd
}
