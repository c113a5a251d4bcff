package main

import (
	"fmt"
	"time"

	"github.com/mikey/email-guardian/internal/core"
	"github.com/spf13/cobra"
)

var (
	historyLimit     int
	historyOffset    int
	historyRequester string
	historyJSON      bool
)

type historyRecord struct {
	ScanID           string  `json:"scan_id"`
	Classification   string  `json:"classification"`
	Confidence       float64 `json:"confidence"`
	RiskTier         string  `json:"risk_tier"`
	CreatedAt        string  `json:"created_at"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scans, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(func(scans *core.ScanService) error {
			page, err := scans.History(cmd.Context(), core.HistoryQuery{
				RequesterID: historyRequester,
				Limit:       historyLimit,
				Offset:      historyOffset,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if historyJSON {
				records := make([]historyRecord, 0, len(page.Entries))
				for _, e := range page.Entries {
					records = append(records, historyRecord{
						ScanID:           e.ScanID,
						Classification:   string(e.Classification),
						Confidence:       e.Confidence,
						RiskTier:         string(e.RiskTier),
						CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339),
						ProcessingTimeMs: e.ProcessingTimeMs,
					})
				}
				return writeJSON(w, records, true)
			}
			for _, e := range page.Entries {
				fmt.Fprintf(w, "%s  %-10s  %.2f  %-6s  %s\n",
					e.CreatedAt.UTC().Format(time.RFC3339), e.Classification, e.Confidence, e.RiskTier, e.ScanID)
			}
			fmt.Fprintf(w, "%d record(s), limit %d, offset %d\n", len(page.Entries), page.Limit, page.Offset)
			return nil
		})
	},
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyLimit, "limit", core.DefaultHistoryLimit, "maximum records to return (1-100)")
	f.IntVar(&historyOffset, "offset", 0, "records to skip")
	f.StringVar(&historyRequester, "requester", "", "only show scans by this requester")
	f.BoolVar(&historyJSON, "json", false, "print records as JSON")
}
