package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/Deadly1ne/ChapBuddy/internal/config"
	"github.com/Deadly1ne/ChapBuddy/internal/state"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show where each series stands",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := loadState()
		if err != nil {
			return err
		}

		entries := store.All()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
		_, _ = fmt.Fprintln(w, "SERIES\tLAST CHAPTER\tLAST RUN\tUPLOAD")

		ids := make([]string, 0, len(cfg.Series))
		for _, s := range cfg.Series {
			ids = append(ids, s.ID)
		}
		// include series no longer in the config but still in the file
		for id := range entries {
			if !containsString(ids, id) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)

		for _, id := range ids {
			st, ok := entries[id]
			if !ok {
				_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\n", id)
				continue
			}

			mark := "ok"
			if !st.UploadSuccess {
				mark = "FAILED"
			}
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", id, st.LastProcessedChapter, st.LastProcessed, mark)
		}

		return w.Flush()
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset <series_id>",
	Short: "Forget a series' progress so the next run starts from scratch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := loadState()
		if err != nil {
			return err
		}

		if err := store.Reset(args[0]); err != nil {
			return err
		}

		fmt.Printf("Reset state for %q\n", args[0])
		return nil
	},
}

func loadState() (*config.Config, *state.Store, error) {
	cfg, _, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		StateFile:    flagStateFile,
	})
	if err != nil {
		return nil, nil, err
	}

	store, err := state.Load(cfg.StateFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func init() {
	stateCmd.AddCommand(stateResetCmd)
	rootCmd.AddCommand(stateCmd)
}
