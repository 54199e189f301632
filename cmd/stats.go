package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bnema/lagmon/internal/config"
	"github.com/bnema/lagmon/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize persisted event timelines",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(config.Get().Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		summaries, err := db.Summary(cmd.Context())
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("no timelines recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ACTION\tCOUNT\tMIN\tMEAN\tMAX")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", s.Action, s.Count, s.Min, s.Mean, s.Max)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
