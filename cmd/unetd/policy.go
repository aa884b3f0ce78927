package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bedecarroll/unet-sub002/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect policy rule files",
}

var policyCheckCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Parse every policy file in a directory and list the loaded rules",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPolicyCheck,
}

func init() {
	policyCmd.AddCommand(policyCheckCmd)
	rootCmd.AddCommand(policyCmd)
}

// runPolicyCheck loads a rule directory exactly the way the serve loop
// does, so a parse error an operator would otherwise first see in the
// daemon's logs shows up here with its source span instead.
func runPolicyCheck(cmd *cobra.Command, args []string) error {
	dir := policyDir
	if len(args) == 1 {
		dir = args[0]
	}

	loaded, fp, err := policy.LoadRuleSet(cmd.Context(), dirPolicySource{Dir: dir})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s) loaded from %s (fingerprint %s)\n", len(loaded), dir, fp)
	for _, lr := range policy.Ordered(loaded) {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s#%d: %s\n", lr.Priority, lr.SourcePath, lr.Index, lr.Rule)
	}
	return nil
}
