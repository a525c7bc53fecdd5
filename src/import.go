package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"famledger-server/src/db"
	"famledger-server/src/db/pgstore"
	"famledger-server/src/importer"
)

func importCmd() *cobra.Command {
	var userID, familyID, accountID int64

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import CSV exports for a user without review",
		Long: `Runs the same pipeline as the upload endpoint and commits every row with its
default flags: duplicates found in storage or in an earlier file are skipped, rows
repeated inside one file are imported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("DB connection failed: %w", err)
			}
			defer pool.Close()

			store := pgstore.New(pool)
			id, err := store.GetIdentity(ctx, userID, familyID)
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("user %d is not a member of family %d", userID, familyID)
			}
			if err != nil {
				return err
			}

			// the session only has to live for this run
			sessions, err := db.NewMemorySessionStore()
			if err != nil {
				return err
			}
			defer sessions.Close()

			svc := importer.NewService(importer.Stores{
				AccountTypes: store,
				Rules:        store,
				Categories:   store,
				Transactions: store,
				UnitOfWork:   store,
				Sessions:     sessions,
			}, log)

			var files []importer.Upload
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				files = append(files, importer.Upload{Name: filepath.Base(path), Body: f})
			}

			page, warnings, err := svc.Upload(ctx, *id, accountID, files)
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", w.File, w.Message)
			}
			if err != nil {
				return err
			}

			summary, err := svc.ImportAll(ctx, *id, page.ImportID, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d transactions (%d flagged as duplicates)\n",
				summary.TotalImported, page.TotalTransactions, page.TotalDuplicates)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id the transactions belong to")
	cmd.Flags().Int64Var(&familyID, "family", 0, "family id of the user")
	cmd.Flags().Int64Var(&accountID, "account", 0, "account type id the files were exported from")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("family")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
