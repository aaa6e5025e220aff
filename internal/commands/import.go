package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clearbooks/clearbooks/internal/dedup"
	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/importer"
	csvstager "github.com/clearbooks/clearbooks/internal/parsers/csv"
	"github.com/clearbooks/clearbooks/internal/parsers/ofx"
	"github.com/clearbooks/clearbooks/internal/registry"
	"github.com/clearbooks/clearbooks/internal/rules"
	"github.com/clearbooks/clearbooks/internal/staging"
	"github.com/clearbooks/clearbooks/internal/ui"
)

func newImportCommand() *cobra.Command {
	var (
		accountID    string
		profilesFile string
		rulesFile    string
		tolerance    int
		keepFuzzy    []int
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "import <statement-file>",
		Short: "Import a bank statement into an account",
		Long: `Import stages the statement, classifies every row against the existing
ledger as new, exact duplicate, or fuzzy duplicate, and commits the new
rows as one atomic batch. Exact duplicates are always skipped; fuzzy
duplicates are skipped unless their row index is listed in --keep.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ctx := cmd.Context()

			ledger, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			reg := registry.New(ofx.NewStager())
			if profilesFile != "" {
				profiles, err := staging.LoadProfiles(profilesFile)
				if err != nil {
					return err
				}
				for _, p := range profiles {
					reg.Register(csvstager.FromProfile(p))
				}
			}

			ui.Step(1, 4, "Staging statement")
			staged, format, err := reg.StageFile(path)
			if err != nil {
				return err
			}
			ui.Info("staged %d rows via %s", len(staged), format)

			ui.Step(2, 4, "Detecting duplicates")
			existing, err := ledger.ListTransactions(ctx, accountID, false)
			if err != nil {
				return err
			}

			session := importer.NewSession(accountID)
			if err := session.AttachFile(filepath.Base(path)); err != nil {
				return err
			}
			detector := dedup.NewDetector(tolerance)
			if err := session.Stage(staged, detector, existing); err != nil {
				return err
			}

			stats := session.Stats()
			ui.Summary("Detection:", [][2]string{
				{"new", fmt.Sprint(stats.New)},
				{"exact duplicates", fmt.Sprint(stats.ExactDuplicates)},
				{"fuzzy duplicates", fmt.Sprint(stats.FuzzyDuplicates)},
				{"invalid rows", fmt.Sprint(stats.Errors)},
			})
			reportRowErrors(session.Staged())

			for _, rowIndex := range keepFuzzy {
				if err := session.KeepFuzzy(rowIndex); err != nil {
					return err
				}
			}

			if dryRun {
				ui.Warning("dry run: %d row(s) would be imported", len(session.Accepted()))
				return nil
			}

			ui.Step(3, 4, "Applying rules")
			engine, err := loadRuleEngine(ctx, ledger, rulesFile)
			if err != nil {
				return err
			}

			ui.Step(4, 4, "Committing batch")
			actor := actorFlag(cmd)
			recorder := rules.NewRecorder(ledger, actor)
			committer := importer.NewCommitter(ledger, engine, recorder, dateLock(cmd), actor)

			res, err := committer.Commit(ctx, session)
			if err != nil {
				return err
			}

			ui.Success("imported %d row(s) as batch %s", res.Batch.ImportedCount, res.Batch.ID)
			if res.RuleSummary.Matched > 0 {
				ui.Info("rules matched %d of %d row(s)", res.RuleSummary.Matched, res.RuleSummary.Evaluated)
			}
			if res.RuleSummary.RuleErrors > 0 {
				ui.Warning("%d malformed rule(s) skipped", res.RuleSummary.RuleErrors)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "target account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&profilesFile, "profiles", "", "import profiles YAML for CSV statements")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "rules YAML file (default: rules saved in the ledger)")
	cmd.Flags().IntVar(&tolerance, "tolerance", dedup.DefaultDateTolerance, "fuzzy duplicate window in days (0 = same day only, negative disables)")
	cmd.Flags().IntSliceVar(&keepFuzzy, "keep", nil, "row indexes of fuzzy duplicates to import anyway")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "stage and classify without committing")

	return cmd
}

func reportRowErrors(staged []domain.StagedTransaction) {
	for i := range staged {
		row := &staged[i]
		if row.IsValid {
			continue
		}
		for _, msg := range row.Errors {
			ui.Warning("row %d: %s", row.RowIndex, msg)
		}
	}
}
