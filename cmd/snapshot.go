package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodaudit/floodaudit/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Persist prepared tables to the snapshot store",
	Long:  "Saves the prepared dataset to SQLite or Postgres so other tools can query an exact version of it.",
}

// -- snapshot save --

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Prepare the dataset and save it as a new snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("snapshot"); err != nil {
			return err
		}

		snap, err := loadSnapshot(ctx)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		saved, err := st.SaveSnapshot(ctx, snap.Source, snap.Projects())
		if err != nil {
			return eris.Wrap(err, "snapshot save")
		}
		zap.L().Info("snapshot: saved",
			zap.String("id", saved.ID),
			zap.String("source", saved.Source),
			zap.Int("rows", saved.Rows),
		)
		formatSnapshot(saved)
		return nil
	},
}

// -- snapshot latest --

var snapshotFilter string

var snapshotLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the newest snapshot, optionally listing its filtered projects",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("snapshot"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		snap, err := st.LatestSnapshot(ctx)
		if eris.Is(err, store.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "No snapshots found.")
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "snapshot latest")
		}
		if snapshotFilter == "" {
			formatSnapshot(snap)
			return nil
		}

		criteria, err := parseCriteria(snapshotFilter)
		if err != nil {
			return err
		}
		projects, err := st.ListProjects(ctx, snap.ID, criteria)
		if err != nil {
			return eris.Wrap(err, "snapshot latest")
		}
		return writeJSON(os.Stdout, projects)
	},
}

func formatSnapshot(s *store.Snapshot) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", s.ID)
	fmt.Fprintf(tw, "Source:\t%s\n", s.Source)
	fmt.Fprintf(tw, "Rows:\t%d\n", s.Rows)
	fmt.Fprintf(tw, "Created:\t%s\n", s.CreatedAt.Format(time.RFC3339))
	tw.Flush() //nolint:errcheck
}

func init() {
	snapshotLatestCmd.Flags().StringVar(&snapshotFilter, "filter", "", "list the snapshot's projects matching these criteria (query string)")
	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLatestCmd)
	rootCmd.AddCommand(snapshotCmd)
}
