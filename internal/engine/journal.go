package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"paperbroker/types"
)

// WriteTradesCSV writes the trade journal to any io.Writer as CSV.
// You can pass os.Stdout for debugging, or an HTTP response.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"trade_id",
		"username",
		"symbol",
		"side",
		"quantity",
		"price",
		"executed_at", // RFC3339
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		record := []string{
			t.ID,
			t.Username,
			t.Symbol,
			string(t.Side),
			strconv.FormatInt(t.Quantity, 10),
			t.Price.String(),
			t.ExecutedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
