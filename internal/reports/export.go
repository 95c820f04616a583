package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vendops/vendops/internal/rollup"
)

var exportPrinter = message.NewPrinter(language.English)

// WriteReportCSV serialises a generic rollup report. Monetary columns are
// rendered from minor units here and nowhere earlier.
func WriteReportCSV(w io.Writer, report *Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Key", "Records", "Quantity", "Gross", "Cost", "Fees", "Net",
		"Rate/Hour", "Rate/Mile", "Efficiency", "Win Rate", "Payback",
	}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := writer.Write([]string{
			row.Key,
			strconv.FormatInt(row.Bucket.RecordCount, 10),
			strconv.FormatInt(row.Bucket.TotalQuantity, 10),
			rollup.FormatMinorUnits(row.Bucket.GrossMinorUnits),
			rollup.FormatMinorUnits(row.Bucket.CostMinorUnits),
			rollup.FormatMinorUnits(row.Bucket.FeeMinorUnits),
			rollup.FormatMinorUnits(row.Metrics.NetMinorUnits),
			formatRate(row.Metrics.RatePerHour),
			formatRate(row.Metrics.RatePerDistance),
			formatRate(row.Metrics.EfficiencyScore),
			formatRate(row.Metrics.WinRate),
			rollup.FormatPayback(row.Metrics.PaybackPeriods),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteVelocityCSV serialises the SKU velocity report with its stock columns.
func WriteVelocityCSV(w io.Writer, report *VelocityReport) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Product", "Records", "Quantity", "Gross", "Units/Day", "Stock On Hand", "Days Of Stock",
	}); err != nil {
		return err
	}
	for _, row := range report.Velocity {
		if err := writer.Write([]string{
			row.Key,
			strconv.FormatInt(row.Bucket.RecordCount, 10),
			strconv.FormatInt(row.Bucket.TotalQuantity, 10),
			rollup.FormatMinorUnits(row.Bucket.GrossMinorUnits),
			formatRate(row.UnitsPerDay),
			strconv.FormatInt(row.StockOnHand, 10),
			formatRate(row.DaysOfStock),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatRate(v float64) string {
	return exportPrinter.Sprintf("%.2f", v)
}
