package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/pageweight/internal/config"
	"github.com/nao1215/pageweight/internal/database"
	"github.com/nao1215/pageweight/internal/model"
	"github.com/nao1215/pageweight/internal/report"
)

// defaultHistoryLimit is how many measurements are listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show past measurements of a page",
		Long: `History lists measurements stored in the history database.

Every run of 'pageweight <url>' is saved unless --no-save is given. For each
measurement the request count, total size and failed requests are shown,
together with a marker when the page document changed since the previous
measurement.

Examples:
  # List past measurements of a page
  pageweight history https://example.com/

  # Compare the latest two measurements
  pageweight history --compare https://example.com/

  # Print a stored measurement
  pageweight history --show 5

  # List every measured URL
  pageweight history --list-urls

  # Forget a page
  pageweight history --delete https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-urls", "L", false,
		"List every URL in the history database")
	cmd.Flags().Int64P("show", "s", 0,
		"Print the stored measurement with this ID")
	cmd.Flags().Bool("compare", false,
		"Compare the latest two measurements of the URL")
	cmd.Flags().Bool("delete", false,
		"Delete every stored measurement of the URL")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of measurements to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().String("data-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listURLs, err := cmd.Flags().GetBool("list-urls")
	if err != nil {
		return err
	}
	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}
	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}

	deleteURL, err := cmd.Flags().GetBool("delete")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if showID < 0 {
		return fmt.Errorf("invalid measurement ID %d: must be positive", showID)
	}
	needsURL := !listURLs && showID == 0
	if needsURL && len(args) != 1 {
		return errors.New("url is required (use --list-urls to see measured URLs)")
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case listURLs:
		return listMeasuredURLs(ctx, db, out)
	case showID > 0:
		return showMeasurement(ctx, db, out, showID)
	case deleteURL:
		return deleteHistory(ctx, db, out, args[0])
	case compare:
		return compareLatest(ctx, db, out, args[0], jsonOutput)
	default:
		return listHistory(ctx, db, out, args[0], limit)
	}
}

// listMeasuredURLs prints every URL that has measurements.
func listMeasuredURLs(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	urls, err := db.ListMeasuredURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list urls: %w", err)
	}

	if len(urls) == 0 {
		fmt.Fprintln(out, "No measurements found in the database.")
		fmt.Fprintln(out, "\nUse 'pageweight <url>' to measure a page.")
		return nil
	}

	fmt.Fprintf(out, "Measured URLs (%d):\n\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  • %s\n", u)
	}
	fmt.Fprintln(out, "\nUse 'pageweight history <url>' to see the measurements of a page.")

	return nil
}

// deleteHistory removes every measurement of url.
func deleteHistory(ctx context.Context, db *database.CrawlDB, out io.Writer, url string) error {
	n, err := db.DeleteHistory(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	if n == 0 {
		fmt.Fprintf(out, "No measurements found for %s\n", url)
		return nil
	}
	fmt.Fprintf(out, "Deleted %d measurement(s) of %s\n", n, url)
	return nil
}

// listHistory prints a table of measurements for url, newest first.
func listHistory(ctx context.Context, db *database.CrawlDB, out io.Writer, url string, limit int) error {
	history, err := db.GetHistory(ctx, url, limit)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No measurements found for %s\n", url)
		fmt.Fprintln(out, "\nUse 'pageweight <url>' to measure this page.")
		return nil
	}

	fmt.Fprintf(out, "Measurements of %s (%d):\n\n", url, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %8s  %-12s  %6s  %s\n", "ID", "Date", "Requests", "Size", "Failed", "Changed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for i, meta := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %8d  %-12s  %6d  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.RequestCount,
			humanize.Bytes(uint64(meta.TotalBytes)), //nolint:gosec // sizes are never negative
			meta.FailedCount,
			changeMarker(history, i),
		)
	}

	fmt.Fprintln(out, "\nUse 'pageweight history --show <id>' to print a measurement.")

	return nil
}

// changeMarker tells whether the measurement at i differs in content from
// the next older one. The oldest listed measurement has nothing to compare.
func changeMarker(history []database.MeasurementMetadata, i int) string {
	if i+1 >= len(history) {
		return "-"
	}
	if history[i].ContentHash != history[i+1].ContentHash {
		return "yes"
	}
	return "no"
}

// showMeasurement prints a stored measurement in the simple text format.
func showMeasurement(ctx context.Context, db *database.CrawlDB, out io.Writer, id int64) error {
	result, err := db.GetResultByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get measurement %d: %w", id, err)
	}
	if result == nil {
		return fmt.Errorf("measurement with ID %d not found", id)
	}

	fmt.Fprintf(out, "Measurement %d of %s at %s\n\n", id, result.URL,
		result.StartedAt.Local().Format("2006-01-02 15:04:05"))

	_, err = report.NewSimpleWriter(out).Write(result)
	return err
}

// ComparisonResult holds the difference between two measurements of a page.
type ComparisonResult struct {
	// URL is the measured page.
	URL string `json:"url"`

	// Previous summarizes the older measurement.
	Previous MeasurementSummary `json:"previous"`

	// Current summarizes the newer measurement.
	Current MeasurementSummary `json:"current"`

	// ContentChanged is true when the page document itself differs.
	ContentChanged bool `json:"content_changed"`

	// RequestDelta is Current.RequestCount - Previous.RequestCount.
	RequestDelta int `json:"request_delta"`

	// BytesDelta is Current.TotalBytes - Previous.TotalBytes.
	BytesDelta int64 `json:"bytes_delta"`

	// AddedResources are URLs present only in the newer measurement.
	AddedResources []string `json:"added_resources,omitempty"`

	// RemovedResources are URLs present only in the older measurement.
	RemovedResources []string `json:"removed_resources,omitempty"`
}

// MeasurementSummary contains the totals of one measurement.
type MeasurementSummary struct {
	MeasuredAt   time.Time `json:"measured_at"`
	RequestCount int       `json:"request_count"`
	TotalBytes   int64     `json:"total_bytes"`
	FailedCount  int       `json:"failed_count"`
}

// compareLatest compares the two most recent measurements of url.
func compareLatest(ctx context.Context, db *database.CrawlDB, out io.Writer, url string, jsonOutput bool) error {
	history, err := db.GetHistory(ctx, url, 2)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(history) < 2 {
		return fmt.Errorf("at least 2 measurements are required for comparison (found %d)", len(history))
	}

	current, err := db.GetResultByID(ctx, history[0].ID)
	if err != nil {
		return fmt.Errorf("failed to get measurement %d: %w", history[0].ID, err)
	}
	previous, err := db.GetResultByID(ctx, history[1].ID)
	if err != nil {
		return fmt.Errorf("failed to get measurement %d: %w", history[1].ID, err)
	}
	if current == nil || previous == nil {
		return errors.New("measurement disappeared while comparing")
	}

	comparison := compareResults(previous, current)

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(comparison)
	}
	return outputComparisonText(out, comparison)
}

// compareResults computes the difference between two measurements.
func compareResults(previous, current *model.CrawlResult) *ComparisonResult {
	result := &ComparisonResult{
		URL:            current.URL,
		Previous:       summarize(previous),
		Current:        summarize(current),
		ContentChanged: previous.ContentHash != current.ContentHash,
	}
	result.RequestDelta = result.Current.RequestCount - result.Previous.RequestCount
	result.BytesDelta = result.Current.TotalBytes - result.Previous.TotalBytes

	previousURLs := resourceURLs(previous)
	currentURLs := resourceURLs(current)

	for u := range currentURLs {
		if _, ok := previousURLs[u]; !ok {
			result.AddedResources = append(result.AddedResources, u)
		}
	}
	for u := range previousURLs {
		if _, ok := currentURLs[u]; !ok {
			result.RemovedResources = append(result.RemovedResources, u)
		}
	}
	sort.Strings(result.AddedResources)
	sort.Strings(result.RemovedResources)

	return result
}

func summarize(r *model.CrawlResult) MeasurementSummary {
	return MeasurementSummary{
		MeasuredAt:   r.StartedAt,
		RequestCount: r.RequestCount,
		TotalBytes:   r.TotalBytes(),
		FailedCount:  r.FailedCount(),
	}
}

// resourceURLs returns the set of URLs in the result tree.
func resourceURLs(r *model.CrawlResult) map[string]struct{} {
	urls := make(map[string]struct{})
	if r.Root == nil {
		return urls
	}
	r.Root.Walk(func(n *model.ReportNode, _ int) {
		urls[n.URL] = struct{}{}
	})
	return urls
}

// outputComparisonText prints the comparison for humans.
func outputComparisonText(out io.Writer, c *ComparisonResult) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Comparison for %s\n\n", c.URL)
	fmt.Fprintf(&sb, "  %-10s  %-20s  %-20s  %s\n", "", "Previous", "Current", "Change")
	fmt.Fprintf(&sb, "  %-10s  %-20s  %-20s  %s\n", "Date",
		c.Previous.MeasuredAt.Local().Format("2006-01-02 15:04:05"),
		c.Current.MeasuredAt.Local().Format("2006-01-02 15:04:05"), "-")
	fmt.Fprintf(&sb, "  %-10s  %-20d  %-20d  %s\n", "Requests",
		c.Previous.RequestCount, c.Current.RequestCount, formatDelta(int64(c.RequestDelta)))
	fmt.Fprintf(&sb, "  %-10s  %-20d  %-20d  %s\n", "Bytes",
		c.Previous.TotalBytes, c.Current.TotalBytes, formatDelta(c.BytesDelta))
	fmt.Fprintf(&sb, "  %-10s  %-20d  %-20d  %s\n", "Failed",
		c.Previous.FailedCount, c.Current.FailedCount,
		formatDelta(int64(c.Current.FailedCount-c.Previous.FailedCount)))

	if c.ContentChanged {
		sb.WriteString("\nThe page document changed.\n")
	} else {
		sb.WriteString("\nThe page document is unchanged.\n")
	}

	if len(c.AddedResources) > 0 {
		fmt.Fprintf(&sb, "\nAdded resources (%d):\n", len(c.AddedResources))
		for _, u := range c.AddedResources {
			fmt.Fprintf(&sb, "  + %s\n", u)
		}
	}
	if len(c.RemovedResources) > 0 {
		fmt.Fprintf(&sb, "\nRemoved resources (%d):\n", len(c.RemovedResources))
		for _, u := range c.RemovedResources {
			fmt.Fprintf(&sb, "  - %s\n", u)
		}
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// formatDelta formats a signed change, e.g. "+3", "-120" or "0".
func formatDelta(delta int64) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return fmt.Sprintf("%d", delta)
}
