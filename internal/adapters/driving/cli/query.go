package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

var (
	queryTopK int
	queryMode string
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a single question against the indexed corpus",
	Long: `Retrieves the fragments most similar to the question, synthesises
an answer with the configured LLM provider, and prints the answer with
citations to the source fragments.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "k", "k", 0, "number of fragments to retrieve")
	queryCmd.Flags().StringVar(&queryMode, "mode", "", "response mode: compact or tree_summarize")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	opts, err := queryOptions(queryTopK, queryMode)
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	answer, err := eng.queries.Query(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputAnswerJSON(cmd, answer)
	}
	outputAnswer(cmd, answer)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println(styleHeading.Render("Sources:"))
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] %s, %s %s\n",
				i+1, c.SourceName, c.Location,
				styleScore.Render(fmt.Sprintf("(%.3f)", c.Score)))
			if c.Preview != "" {
				cmd.Printf("      %s\n", styleFaint.Render(c.Preview))
			}
		}
	}

	if answer.Dropped > 0 {
		cmd.Println()
		cmd.Println(styleFail.Render(fmt.Sprintf(
			"warning: %d retrieved candidates had no stored fragment", answer.Dropped)))
	}
}
