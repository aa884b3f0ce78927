package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bedecarroll/unet-sub002/internal/configslice/diff"
	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
)

var (
	diffVendorHint string
	diffSemantic   bool
	diffPolicy     string
)

var diffCmd = &cobra.Command{
	Use:   "diff <left-config-file> <right-config-file>",
	Short: "Diff two device configurations hierarchically",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffVendorHint, "vendor", "", "Vendor hint (cisco, juniper, generic); auto-detected when empty")
	diffCmd.Flags().BoolVar(&diffSemantic, "semantic", false, "Use the vendor-aware semantic differ instead of plain hierarchical diff")
	diffCmd.Flags().StringVar(&diffPolicy, "resolve", "", "Conflict resolution policy when --semantic is set: prefer-left, prefer-right, require-manual, auto-merge")
}

func runDiff(cmd *cobra.Command, args []string) error {
	leftText, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read left config file: %w", err)
	}
	rightText, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read right config file: %w", err)
	}

	registry := parse.NewRegistry()
	leftRoot, vendor, err := registry.Parse(diffVendorHint, string(leftText))
	if err != nil {
		return fmt.Errorf("parse left config: %w", err)
	}
	rightRoot, _, err := registry.Parse(diffVendorHint, string(rightText))
	if err != nil {
		return fmt.Errorf("parse right config: %w", err)
	}

	var deltas []diff.Delta
	if diffSemantic {
		profile, ok := registry.Lookup(vendor)
		if !ok {
			return fmt.Errorf("no order-sensitivity profile registered for vendor %s", vendor)
		}
		deltas = diff.SemanticDiff(leftRoot, rightRoot, profile)
	} else {
		deltas = diff.HierarchicalDiff(leftRoot, rightRoot)
	}

	printDeltas(cmd, deltas, 0)

	stats := diff.Summarize(deltas)
	fmt.Fprintln(cmd.OutOrStdout(), "\nsummary:")
	for cat, n := range stats.ByCategory {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", cat, n)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "by section:")
	for sec, counts := range stats.BySection {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", sec, counts)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "by impact:")
	for impact, n := range stats.ByImpact {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", impact, n)
	}

	if diffSemantic && diffPolicy != "" {
		policy, err := parseResolvePolicy(diffPolicy)
		if err != nil {
			return err
		}
		conflicts, err := diff.Resolve(deltas, policy)
		if err != nil {
			return fmt.Errorf("resolve conflicts: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d conflict(s) under policy %s:\n", len(conflicts), diffPolicy)
		for _, c := range conflicts {
			manual := ""
			if c.RequiresManual {
				manual = " (requires manual resolution)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s%s\n", strings.Join(c.Delta.Path, " > "), c.Delta.Category, manual)
		}
	}
	return nil
}

func parseResolvePolicy(s string) (diff.Policy, error) {
	switch s {
	case "prefer-left":
		return diff.PolicyPreferLeft, nil
	case "prefer-right":
		return diff.PolicyPreferRight, nil
	case "require-manual":
		return diff.PolicyRequireManual, nil
	case "auto-merge":
		return diff.PolicyAutoMergeNonConflicting, nil
	default:
		return diff.PolicyUnspecified, fmt.Errorf("unknown --resolve policy %q", s)
	}
}

func printDeltas(cmd *cobra.Command, deltas []diff.Delta, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, d := range deltas {
		if d.Category == diff.CategoryEquivalent && depth > 0 {
			continue
		}
		header := "<root>"
		if d.Right != nil {
			header = d.Right.Header()
		} else if d.Left != nil {
			header = d.Left.Header()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s[%s] %s\n", indent, d.Category, header)
		printDeltas(cmd, d.Children, depth+1)
	}
}
