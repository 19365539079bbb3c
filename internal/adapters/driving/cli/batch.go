package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/logs"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/services"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

var batchCmd = &cobra.Command{
	Use:   "batch [input.json] [output.jsonl]",
	Short: "Run a batch of prompts and log one result per line",
	Long: `Reads a JSON array of prompts from the input file and processes them
sequentially. Each prompt produces exactly one JSONL record in the output
file, appended and flushed as soon as the item finishes, so an interrupted
run keeps every completed result. A failing prompt is recorded and the run
continues; the exit code reflects whether any items failed.`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]

	prompts, err := readPrompts(inputPath)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return fmt.Errorf("%w: %s contains no prompts", domain.ErrConfiguration, inputPath)
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	log, err := logs.NewJSONLLog(outputPath)
	if err != nil {
		return err
	}
	defer log.Close()

	runner := services.NewBatchRunner(eng.queries, log, services.BatchRunnerConfig{
		ItemInterval: time.Duration(settings.Batch.ItemIntervalMS) * time.Millisecond,
		Defaults:     configuredQueryDefaults(),
	})

	logger.Section("Running batch")
	started := time.Now()
	_, summary, err := runner.Run(context.Background(), prompts)
	if err != nil {
		// Log append failure: completed records are already durable.
		return fmt.Errorf("batch aborted: %w", err)
	}

	outputSummary(cmd, summary, time.Since(started), outputPath)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d prompts failed", summary.Failed, summary.Total)
	}
	return nil
}

// readPrompts parses the batch input file, a JSON array of prompt objects.
func readPrompts(path string) ([]domain.BatchPrompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrConfiguration, path, err)
	}

	var prompts []domain.BatchPrompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON array of prompts: %w",
			domain.ErrConfiguration, path, err)
	}
	return prompts, nil
}

func outputSummary(cmd *cobra.Command, summary domain.BatchSummary, elapsed time.Duration, outputPath string) {
	cmd.Println()
	cmd.Println(styleHeading.Render("Batch summary"))
	cmd.Printf("  Total:     %d\n", summary.Total)
	cmd.Printf("  Succeeded: %s\n", stylePass.Render(fmt.Sprintf("%d", summary.Succeeded)))
	if summary.Failed > 0 {
		cmd.Printf("  Failed:    %s\n", styleFail.Render(fmt.Sprintf("%d", summary.Failed)))
	} else {
		cmd.Printf("  Failed:    %d\n", summary.Failed)
	}
	cmd.Printf("  Elapsed:   %s\n", elapsed.Round(time.Millisecond))

	if len(summary.ByCategory) > 0 {
		cmd.Println("  By category:")
		categories := make([]string, 0, len(summary.ByCategory))
		for cat := range summary.ByCategory {
			categories = append(categories, cat)
		}
		sort.Strings(categories)
		for _, cat := range categories {
			cmd.Printf("    %s: %d\n", cat, summary.ByCategory[cat])
		}
	}

	cmd.Printf("\nResults written to %s\n", outputPath)
}
