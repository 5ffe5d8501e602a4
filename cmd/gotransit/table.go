package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kristinelam/gotransit"
	"github.com/kristinelam/gotransit/internal/tablestore"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage interpolation tables",
	Long: `Build, list and delete the interpolation tables used by the
interpolated quadratic model. Tables are keyed by their radius ratio range
and grid size.`,
}

var tableBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a table and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tablestore.Open(srvCfg.TableDB)
		if err != nil {
			return err
		}
		defer store.Close()

		start := time.Now()
		t, err := gotransit.BuildTable(cfg.KMin, cfg.KMax, cfg.NK, cfg.NZ)
		if err != nil {
			return err
		}
		if err := store.Save(cmd.Context(), t); err != nil {
			return err
		}
		logger.Info("interpolation table stored", "key", t.Key().String(), "path", store.Path(), "duration", time.Since(start))
		return nil
	},
}

var tableListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored tables",
	Aliases: []string{"ls", "show"},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tablestore.Open(srvCfg.TableDB)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tables stored.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KMIN\tKMAX\tNK\tNZ\tBYTES\tCREATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%g\t%g\t%d\t%d\t%d\t%s\n",
				e.Key.KMin, e.Key.KMax, e.Key.NK, e.Key.NZ, e.Bytes, e.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var tableDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the table matching the grid flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tablestore.Open(srvCfg.TableDB)
		if err != nil {
			return err
		}
		defer store.Close()

		key := gotransit.TableKey{KMin: cfg.KMin, KMax: cfg.KMax, NK: cfg.NK, NZ: cfg.NZ}
		if err := store.Delete(cmd.Context(), key); err != nil {
			return err
		}
		logger.Info("interpolation table deleted", "key", key.String())
		return nil
	},
}

func init() {
	tableCmd.PersistentFlags().StringVar(&srvCfg.TableDB, "db", srvCfg.TableDB, "table database path")
	for _, c := range []*cobra.Command{tableBuildCmd, tableDeleteCmd} {
		fs := c.Flags()
		fs.Float64Var(&cfg.KMin, "kmin", cfg.KMin, "smallest radius ratio")
		fs.Float64Var(&cfg.KMax, "kmax", cfg.KMax, "largest radius ratio")
		fs.IntVar(&cfg.NK, "nk", cfg.NK, "radius ratio grid points")
		fs.IntVar(&cfg.NZ, "nz", cfg.NZ, "separation grid points")
	}

	tableCmd.AddCommand(tableBuildCmd)
	tableCmd.AddCommand(tableListCmd)
	tableCmd.AddCommand(tableDeleteCmd)
}
