package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cylbom/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Operator rule management",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Parse a rules file and report errors",
	Args:  cobra.ExactArgs(1),
	RunE:  checkRules,
}

func init() {
	rulesCmd.AddCommand(rulesCheckCmd)
}

func checkRules(cmd *cobra.Command, args []string) error {
	rs, errs, err := rules.LoadFile(args[0])
	if err != nil {
		return err
	}
	for _, e := range errs {
		fmt.Printf("error: %v\n", e)
	}
	fmt.Printf("%d rules ok, %d rejected\n", len(rs), len(errs))
	for _, r := range rs {
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %-30s priority %-4d %s\n", r.Name, r.Priority, state)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d invalid rules", len(errs))
	}
	return nil
}
