package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bedecarroll/unet-sub002/internal/store"
)

var (
	nodeListVendor    string
	nodeListLifecycle string
	nodeListName      string
	nodeListLimit     int
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect desired-state nodes in the configured store",
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes, optionally filtered by vendor, lifecycle, or name substring",
	RunE:  runNodeList,
}

func init() {
	nodeListCmd.Flags().StringVar(&nodeListVendor, "vendor", "", "Filter by vendor")
	nodeListCmd.Flags().StringVar(&nodeListLifecycle, "lifecycle", "", "Filter by lifecycle")
	nodeListCmd.Flags().StringVar(&nodeListName, "name", "", "Filter by name substring")
	nodeListCmd.Flags().IntVar(&nodeListLimit, "limit", 100, "Maximum rows to return")
	nodeCmd.AddCommand(nodeListCmd)
	rootCmd.AddCommand(nodeCmd)
}

func runNodeList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	opts := store.ListOptions{SortBy: "name", Limit: nodeListLimit, CountTotal: true}
	if nodeListVendor != "" {
		opts.Filters = append(opts.Filters, store.Filter{Field: "vendor", Op: store.OpEq, Value: nodeListVendor})
	}
	if nodeListLifecycle != "" {
		opts.Filters = append(opts.Filters, store.Filter{Field: "lifecycle", Op: store.OpEq, Value: nodeListLifecycle})
	}
	if nodeListName != "" {
		opts.Filters = append(opts.Filters, store.Filter{Field: "name", Op: store.OpContains, Value: nodeListName})
	}

	res, err := st.ListNodes(ctx, nil, opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDOMAIN\tVENDOR\tMODEL\tLIFECYCLE\tMGMT\tVERSION")
	for _, n := range res.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			n.ID, n.Name, n.Domain, n.Vendor.Name(), n.Model, n.Lifecycle, n.MgmtAddr, n.SoftwareVersion)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d node(s)\n", len(res.Items), res.Total)
	return nil
}
