package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/core/services"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the persisted index for corruption and inconsistency",
	Long: `Runs integrity checks over the persisted index artifacts:
artifact presence, index shape, store/index cross-references, and
document reference linkage. Exits non-zero if any check fails.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	arts, err := openArtifacts()
	if err != nil {
		return err
	}
	defer arts.close()

	verifier := services.NewVerifier(arts.store, arts.index, arts.paths)
	results, err := verifier.Verify(context.Background())
	if err != nil {
		return fmt.Errorf("verification aborted: %w", err)
	}

	cmd.Println(styleHeading.Render("Index verification"))
	cmd.Println()

	failed := 0
	for _, res := range results {
		mark := stylePass.Render("ok")
		if !res.Passed {
			mark = styleFail.Render("FAIL")
			failed++
		}
		cmd.Printf("  [%s] %s\n", mark, res.Name)
		if res.Detail != "" {
			cmd.Printf("       %s\n", styleFaint.Render(res.Detail))
		}
	}
	cmd.Println()

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	cmd.Printf("All %d checks passed.\n", len(results))
	return nil
}
