package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deployhook/internal/state"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  `Create or upgrade the repos schema in the configured database, then print the schema version and the migrations it was built from.`,
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

			version, err := store.MigrationVersion(cmd.Context())
			if err != nil {
				return err
			}
			files, err := state.MigrationFiles(store.Dialect())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s schema at version %d\n", store.Dialect(), version)
			for _, f := range files {
				_, _ = fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}
}
