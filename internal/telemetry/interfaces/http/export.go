package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	telemetryapp "asset-cloud/internal/telemetry/application"
	telemetry "asset-cloud/internal/telemetry/domain"
)

// BuildSeriesPDF renders a minimal PDF for a subscription's time-series.
func BuildSeriesPDF(series *telemetryapp.TimeSeries) ([]byte, error) {
	unit, _ := telemetry.UnitFor(series.MetricType)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Metric Time Series")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Subscription: %s", series.SubscriptionID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Device: %s", series.DeviceID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Metric: %s (%s)", series.MetricType, unit))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s - %s", series.Start.Format(time.RFC3339), series.End.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, fmt.Sprintf("Value (%s)", unit), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, point := range series.Points {
		pdf.CellFormat(70, 6, point.Time.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.3f", point.Value), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSeriesXLSX renders a minimal XLSX for a subscription's time-series.
func BuildSeriesXLSX(series *telemetryapp.TimeSeries) ([]byte, error) {
	unit, _ := telemetry.UnitFor(series.MetricType)

	f := excelize.NewFile()
	summarySheet := "summary"
	valuesSheet := "values"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(valuesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Metric Time Series")
	_ = f.SetCellValue(summarySheet, "A3", "Subscription")
	_ = f.SetCellValue(summarySheet, "B3", series.SubscriptionID)
	_ = f.SetCellValue(summarySheet, "A4", "Device")
	_ = f.SetCellValue(summarySheet, "B4", series.DeviceID)
	_ = f.SetCellValue(summarySheet, "A5", "Metric")
	_ = f.SetCellValue(summarySheet, "B5", series.MetricType)
	_ = f.SetCellValue(summarySheet, "A6", "Unit")
	_ = f.SetCellValue(summarySheet, "B6", unit)
	_ = f.SetCellValue(summarySheet, "A7", "Start")
	_ = f.SetCellValue(summarySheet, "B7", series.Start.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A8", "End")
	_ = f.SetCellValue(summarySheet, "B8", series.End.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A9", "Points")
	_ = f.SetCellValue(summarySheet, "B9", len(series.Points))

	_ = f.SetCellValue(valuesSheet, "A1", "Time")
	_ = f.SetCellValue(valuesSheet, "B1", fmt.Sprintf("Value (%s)", unit))
	for i, point := range series.Points {
		row := i + 2
		_ = f.SetCellValue(valuesSheet, fmt.Sprintf("A%d", row), point.Time.Format(time.RFC3339))
		_ = f.SetCellValue(valuesSheet, fmt.Sprintf("B%d", row), point.Value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
