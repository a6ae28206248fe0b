package main

import (
	"fmt"
	"os"
	"path"
	"time"

	"arbor/internal/index"

	"github.com/spf13/cobra"
)

var (
	dbPath    string
	listLimit int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the parse-record index",
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent parse records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := index.Open(dbPath)
		if err != nil {
			return err
		}
		defer ix.Close()

		records, err := ix.Recent(listLimit)
		if err != nil {
			return err
		}
		for _, rec := range records {
			mode := "full"
			if rec.Incremental {
				mode = "incremental"
			}
			fmt.Printf("%s\t%s\t%d bytes\t%dµs\t%s\t%s\n",
				rec.Path, rec.Language, rec.Bytes, rec.ParseMicros, mode,
				time.Unix(rec.LastModified, 0).Format(time.RFC3339))
		}
		return nil
	},
}

var indexPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop records for files that no longer exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := index.Open(dbPath)
		if err != nil {
			return err
		}
		defer ix.Close()

		pruned, err := ix.PruneMissing()
		if err != nil {
			return err
		}
		for _, p := range pruned {
			fmt.Println(p)
		}
		fmt.Printf("pruned %d record(s)\n", len(pruned))
		return nil
	},
}

func init() {
	indexCmd.PersistentFlags().StringVar(&dbPath, "db", defaultIndexPath(), "path to the index database")
	indexListCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum records to list")
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexPruneCmd)
	rootCmd.AddCommand(indexCmd)
}

func defaultIndexPath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "index.db"
		}
		stateHome = path.Join(home, ".local", "state")
	}
	return path.Join(stateHome, "arbor", "index.db")
}
