package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deployhook/pkg/core"
)

// NewReposCommand creates the repos command group.
func NewReposCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage repo bindings",
		Long:  `List and add the GitHub repo branches that deploy to cluster apps.`,
	}
	cmd.AddCommand(newReposListCommand(), newReposAddCommand())
	return cmd
}

func newReposListCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured repos",
		Example: `  deployhook repos list
  deployhook repos list --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			if err := cc.Cfg.Validate(); err != nil {
				return err
			}

			store, err := cc.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			repos, err := store.ListRepos(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list repos: %w", err)
			}

			switch format {
			case "json":
				return renderReposJSON(cmd.OutOrStdout(), repos)
			case "table", "":
				renderReposTable(cmd.OutOrStdout(), repos)
				return nil
			default:
				return fmt.Errorf("unknown format %q (available: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table|json)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newReposAddCommand() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:     "add <owner/repo> <app>",
		Short:   "Bind a repo branch to an app",
		Example: `  deployhook repos add lmars/blog blog --branch main`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			if err := cc.Cfg.Validate(); err != nil {
				return err
			}

			store, err := cc.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			repo := &core.Repo{Name: args[0], Branch: branch, App: args[1]}
			if err := store.CreateRepo(cmd.Context(), repo); err != nil {
				return fmt.Errorf("failed to add repo: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) -> %s\n", repo.Name, repo.Branch, repo.App)
			return nil
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", core.DefaultBranch, "Branch to deploy")
	return cmd
}

func renderReposTable(w io.Writer, repos []core.Repo) {
	if len(repos) == 0 {
		_, _ = fmt.Fprintln(w, "(0 repos)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Branch", "App", "Created"})
	for _, r := range repos {
		created := ""
		if r.CreatedAt != nil {
			created = r.CreatedAt.UTC().Format(time.RFC3339)
		}
		t.AppendRow(table.Row{r.ID, r.Name, r.Branch, r.App, created})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d repos)\n", len(repos))
}

func renderReposJSON(w io.Writer, repos []core.Repo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(repos)
}
