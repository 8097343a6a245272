package main

import (
	"fmt"

	ledgermigrations "github.com/goliatone/go-ledgerflow/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := opts.fileConfig()
			if err != nil {
				return err
			}
			if list {
				dialect, err := ledgermigrations.DialectForDriver(file.Database.Driver)
				if err != nil {
					return err
				}
				versions, err := ledgermigrations.Versions(dialect)
				if err != nil {
					return err
				}
				for _, version := range versions {
					fmt.Fprintln(opts.out, version)
				}
				return nil
			}

			client, dialect, err := openPersistence(cmd.Context(), file.Database)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(opts.out, "migrations applied (%s)\n", dialect)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list the shipped migration versions without applying them")
	return cmd
}
