package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhvu-dev/provisioner/internal/core/config"
	"github.com/minhvu-dev/provisioner/internal/provisioning/retry"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show retry statistics from a running engine",
	Run:   runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("http://localhost:%d/stats", cfg.Server.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		slog.Error("Failed to reach engine", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var stats retry.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		slog.Error("Failed to decode stats", "error", err)
		os.Exit(1)
	}

	fmt.Printf("attempts: %d  successful: %d  failed: %d  success rate: %.2f\n",
		stats.TotalAttempts, stats.Successful, stats.Failed, stats.SuccessRate)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "KEY\tATTEMPT\tOK\tERROR")
	for _, rec := range stats.RecentAttempts {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%t\t%s\n",
			rec.IdempotencyKey, rec.Attempt, rec.Success, rec.ErrorSummary)
	}
	_ = w.Flush()
}
