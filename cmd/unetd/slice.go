package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bedecarroll/unet-sub002/internal/configslice/parse"
	"github.com/bedecarroll/unet-sub002/internal/configslice/slice"
)

var (
	sliceVendorHint string
	sliceGlob       string
	sliceRegex      string
	sliceHier       []string
)

var sliceCmd = &cobra.Command{
	Use:   "slice <config-file>",
	Short: "Extract slices from a device configuration by pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlice,
}

func init() {
	sliceCmd.Flags().StringVar(&sliceVendorHint, "vendor", "", "Vendor hint (cisco, juniper, generic); auto-detected when empty")
	sliceCmd.Flags().StringVar(&sliceGlob, "glob", "", "Glob path pattern, e.g. interface/*")
	sliceCmd.Flags().StringVar(&sliceRegex, "regex", "", "Regex matched against full header lines")
	sliceCmd.Flags().StringSliceVar(&sliceHier, "hier", nil, "Ordered hierarchical segments, e.g. interface,* (append ? to mark optional)")
}

func runSlice(cmd *cobra.Command, args []string) error {
	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	registry := parse.NewRegistry()
	root, vendor, err := registry.Parse(sliceVendorHint, string(text))
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "detected vendor: %s\n\n", vendor)

	switch {
	case sliceGlob != "":
		for _, s := range (slice.GlobSlicer{Pattern: sliceGlob}).Slices(root) {
			printSlice(cmd, s)
		}
	case sliceRegex != "":
		re, err := regexp.Compile(sliceRegex)
		if err != nil {
			return fmt.Errorf("compile regex: %w", err)
		}
		for _, m := range (slice.RegexSlicer{Pattern: re}).Slices(root) {
			printSlice(cmd, m.Slice)
			if len(m.Groups) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "  groups: %v\n", m.Groups[1:])
			}
		}
	case len(sliceHier) > 0:
		segs := make([]slice.Segment, 0, len(sliceHier))
		for _, raw := range sliceHier {
			optional := strings.HasSuffix(raw, "?")
			segs = append(segs, slice.Segment{Pattern: strings.TrimSuffix(raw, "?"), Optional: optional})
		}
		for _, s := range (slice.HierarchicalSlicer{Segments: segs}).Slices(root) {
			printSlice(cmd, s)
		}
	default:
		return fmt.Errorf("one of --glob, --regex, or --hier is required")
	}
	return nil
}

func printSlice(cmd *cobra.Command, s slice.Slice) {
	fmt.Fprintf(cmd.OutOrStdout(), "--- %s ---\n%s\n", strings.Join(s.Path, " > "), s.Root.Serialize())
}
