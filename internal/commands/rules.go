package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearbooks/clearbooks/internal/rules"
	"github.com/clearbooks/clearbooks/internal/store"
	"github.com/clearbooks/clearbooks/internal/ui"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
	}
	cmd.AddCommand(newRulesListCommand(), newRulesLoadCommand())
	return cmd
}

func newRulesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved rules by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			saved, err := ledger.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range saved {
				status := ""
				if !r.Enabled {
					status = "  (disabled)"
				}
				ui.Info("%3d  %-12s %-25q -> %s  (used %d)%s",
					r.Priority, r.MatchType, r.Keyword, r.CategoryID, r.UseCount, status)
			}
			return nil
		},
	}
}

func newRulesLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <rules-file>",
		Short: "Load a rules YAML file into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			parsed, err := rules.ParseRules(data)
			if err != nil {
				return err
			}
			for i := range parsed {
				if err := ledger.SaveRule(cmd.Context(), &parsed[i]); err != nil {
					return err
				}
			}
			ui.Success("loaded %d rule(s)", len(parsed))
			return nil
		},
	}
}

// loadRuleEngine builds the match engine from a YAML file when given,
// otherwise from the rules saved in the ledger, falling back to the
// embedded defaults for a fresh database.
func loadRuleEngine(ctx context.Context, ledger *store.Store, rulesFile string) (*rules.Engine, error) {
	if rulesFile != "" {
		return rules.LoadFromFile(rulesFile)
	}

	saved, err := ledger.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return rules.LoadEmbedded()
	}
	return rules.NewEngine(saved), nil
}
