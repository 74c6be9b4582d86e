package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

type runWithDeps func(run func(cmd *cobra.Command, d deps, args []string) error) func(*cobra.Command, []string) error

func newQueryCmd(withDeps runWithDeps) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Resolve a natural-language question to matching reviews",
		Example: `  reviewctl query "where did I have tacos near Mountain View?"
  reviewctl query --json "places I would not go back to"`,
		Args: cobra.MinimumNArgs(1),
		RunE: withDeps(func(cmd *cobra.Command, d deps, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}

			result, err := d.query.ResolveQuery(cmd.Context(), question)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderResult(cmd, result)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw retrieval result as JSON")
	return cmd
}

func renderResult(cmd *cobra.Command, result domain.RetrievalResult) {
	out := cmd.OutOrStdout()
	if len(result.Reviews) == 0 {
		fmt.Fprintln(out, "No matching reviews.")
		return
	}

	names := make(map[string]string, len(result.Places))
	for _, p := range result.Places {
		names[p.PlaceID] = p.Name
	}

	fmt.Fprintf(out, "%d review(s):\n", len(result.Reviews))
	for _, r := range result.Reviews {
		name := names[r.PlaceID]
		if name == "" {
			name = r.PlaceID
		}
		fmt.Fprintf(out, "- %s  %s  would return: %s\n", r.Structured.DateOfVisit.String(), name, r.Structured.WouldReturn)
		if text := strings.TrimSpace(r.Freeform.ReviewText); text != "" {
			fmt.Fprintf(out, "    %s\n", text)
		}
		for _, item := range r.Freeform.ItemReviews {
			fmt.Fprintf(out, "    * %s: %s\n", item.Item, item.Review)
		}
	}
}
