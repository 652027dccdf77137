package cli

import (
	"fmt"
	"io"

	"github.com/raphaelgruber/campusdesk/internal/metrics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server statistics",
	Long: `Show in-memory server statistics: request timings for the todo store
and token usage of the chat provider since the last restart.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := apiClient.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}
	printServerStats(cmd.OutOrStdout(), stats)
	return nil
}

// printServerStats displays server runtime statistics.
func printServerStats(w io.Writer, stats *metrics.Snapshot) {
	fmt.Fprintf(w, "Server Statistics (in-memory, since restart)\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════\n")
	fmt.Fprintf(w, "Uptime: %.1f seconds\n", stats.UptimeSeconds)

	if stats.TaskList != nil {
		fmt.Fprintf(w, "\nTodo reads:\n")
		printOpStats(w, stats.TaskList)
	}

	if stats.TaskWrite != nil {
		fmt.Fprintf(w, "\nTodo writes:\n")
		printOpStats(w, stats.TaskWrite)
	}

	if stats.LLMChat != nil {
		fmt.Fprintf(w, "\nChat:\n")
		printOpStats(w, stats.LLMChat)
		printTokenStats(w, stats.LLMChat)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op *metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Errors: %d, Total: %dms\n", op.Count, op.Errors, op.TotalTimeMs)
	fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

// printTokenStats displays token statistics if available.
func printTokenStats(w io.Writer, op *metrics.OperationSnapshot) {
	if op.TotalInputTokens == nil || op.TotalOutputTokens == nil {
		return
	}
	fmt.Fprintf(w, "  Tokens In:  %d total", *op.TotalInputTokens)
	if op.AvgInputTokens != nil {
		fmt.Fprintf(w, ", avg %.0f", *op.AvgInputTokens)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Tokens Out: %d total", *op.TotalOutputTokens)
	if op.AvgOutputTokens != nil {
		fmt.Fprintf(w, ", avg %.0f", *op.AvgOutputTokens)
	}
	fmt.Fprintln(w)
}
