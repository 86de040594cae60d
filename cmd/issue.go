package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalverra/tracker-client/tracker"
)

const maxConcurrentGets = 4

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Read and change issues",
}

var issueGetCmd = &cobra.Command{
	Use:   "get KEY...",
	Short: "Fetch one or more issues by key",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issues := make([]*tracker.Issue, len(args))
		eg, ctx := errgroup.WithContext(cmd.Context())
		eg.SetLimit(maxConcurrentGets)
		for i, key := range args {
			eg.Go(func() error {
				issue, err := client.Issues.Get(ctx, key)
				if err != nil {
					return fmt.Errorf("failed to get issue %s: %w", key, err)
				}
				issues[i] = issue
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), cfg.Output, wire(issues))
	},
}

func listOptions(cmd *cobra.Command) (tracker.ListOptions, bool, error) {
	flags := cmd.Flags()
	page, err := flags.GetInt("page")
	if err != nil {
		return tracker.ListOptions{}, false, err
	}
	perPage, err := flags.GetInt("per-page")
	if err != nil {
		return tracker.ListOptions{}, false, err
	}
	params, err := flags.GetStringToString("param")
	if err != nil {
		return tracker.ListOptions{}, false, err
	}
	all, err := flags.GetBool("all")
	if err != nil {
		return tracker.ListOptions{}, false, err
	}
	return tracker.ListOptions{Page: page, PerPage: perPage, Params: params}, all, nil
}

func addListFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int("page", 0, "Page to fetch (offset-paged endpoints)")
	flags.Int("per-page", 0, "Entities per page")
	flags.StringToString("param", nil, "Extra query parameters, e.g. scrollType=sorted")
	flags.Bool("all", false, "Follow every following page")
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, all, err := listOptions(cmd)
		if err != nil {
			return err
		}
		page, err := client.Issues.List(cmd.Context(), opts)
		if err != nil {
			return err
		}
		items, err := collect(cmd.Context(), page, all)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), cfg.Output, summarize(page, items))
	},
}

var issueSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search issues by query or filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, all, err := listOptions(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		query, _ := flags.GetString("query")
		order, _ := flags.GetString("order")
		filter, _ := flags.GetString("filter")

		sr := tracker.SearchRequest{Query: query, Order: order}
		if filter != "" {
			if err := json.Unmarshal([]byte(filter), &sr.Filter); err != nil {
				return fmt.Errorf("failed to parse --filter as a JSON object: %w", err)
			}
		}
		if sr.Query == "" && len(sr.Filter) == 0 {
			return fmt.Errorf("one of --query or --filter is required")
		}

		page, err := client.Issues.Search(cmd.Context(), sr, opts)
		if err != nil {
			return err
		}
		items, err := collect(cmd.Context(), page, all)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), cfg.Output, summarize(page, items))
	},
}

var issueTransitionsCmd = &cobra.Command{
	Use:   "transitions KEY",
	Short: "List the transitions available for an issue, or execute one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		available, err := client.Issues.Transitions(ctx, args[0])
		if err != nil {
			return err
		}

		id, _ := cmd.Flags().GetString("execute")
		if id == "" {
			return render(cmd.OutOrStdout(), cfg.Output, wire(available.Items()))
		}

		for _, t := range available.All() {
			if t.ID() != id {
				continue
			}
			comment, _ := cmd.Flags().GetString("comment")
			var fields map[string]any
			if comment != "" {
				fields = map[string]any{"comment": comment}
			}
			next, err := t.Execute(ctx, fields)
			if err != nil {
				return err
			}
			logger.Info().
				Str("component", "cli").
				Str("issue", args[0]).
				Str("transition", id).
				Msg("executed transition")
			return render(cmd.OutOrStdout(), cfg.Output, wire(next.Items()))
		}
		return fmt.Errorf("transition %q is not available for %s", id, args[0])
	},
}

func init() {
	addListFlags(issueListCmd)
	addListFlags(issueSearchCmd)
	issueSearchCmd.Flags().String("query", "", "Query language expression")
	issueSearchCmd.Flags().String("filter", "", `Filter as a JSON object, e.g. {"queue":"TEST"}`)
	issueSearchCmd.Flags().String("order", "", "Sort order, e.g. +status")
	issueTransitionsCmd.Flags().String("execute", "", "Id of a transition to execute")
	issueTransitionsCmd.Flags().String("comment", "", "Comment attached to an executed transition")

	issueCmd.AddCommand(issueGetCmd, issueListCmd, issueSearchCmd, issueTransitionsCmd)
	rootCmd.AddCommand(issueCmd)
}
