package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/wcfm-archiver/internal/boundary"
)

// boundaryInfo is one upcoming segment boundary. Live recording stops at
// Close and the padding runs from Close to PaddingPoint.
type boundaryInfo struct {
	Close        time.Time `json:"close"`
	End          time.Time `json:"end"`
	PaddingPoint time.Time `json:"padding_point"`
	Slot         int64     `json:"slot"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "boundaries",
		Short: "Print the next segment boundaries on the configured grid",
		Args:  cobra.NoArgs,
		RunE:  runBoundaries,
	}

	cmd.Flags().IntP("count", "n", 5, "Number of boundaries")
	cmd.Flags().String("from", "", "Start time in RFC 3339 (default: now)")

	RootCmd.AddCommand(cmd)
}

func runBoundaries(cmd *cobra.Command, _ []string) error {
	count, _ := cmd.Flags().GetInt("count")
	fromStr, _ := cmd.Flags().GetString("from")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	interval, err := cfg.Interval()
	if err != nil {
		return err
	}

	now := boundary.SystemClock{}.Now()
	if fromStr != "" {
		if now, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return fmt.Errorf("parse --from: %w", err)
		}
	}

	infos := upcomingBoundaries(interval, now, count)

	if formatFlag == "json" {
		return writeJSON(cmd.OutOrStdout(), infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CLOSE\tEND\tPADDING POINT\tSLOT\n")
	for _, b := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			b.Close.Format(time.RFC3339), b.End.Format(time.RFC3339), b.PaddingPoint.Format(time.RFC3339), b.Slot)
	}
	return tw.Flush()
}

func upcomingBoundaries(interval boundary.Interval, now time.Time, count int) []boundaryInfo {
	infos := make([]boundaryInfo, 0, max(count, 0))
	t := now
	for i := 0; i < count; i++ {
		end := interval.NextEnd(t).In(now.Location())
		infos = append(infos, boundaryInfo{
			Close:        interval.ClosePoint(end),
			End:          end,
			PaddingPoint: interval.PaddingPoint(end),
			Slot:         interval.Slot(end),
		})
		t = end
	}
	return infos
}
