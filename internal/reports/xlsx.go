package reports

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"carbonseed/internal/models"
)

const summarySheet = "Summary"

// Workbook renders a report as an xlsx file with one Summary sheet of
// labelled metric rows, nested sections flattened into their own blocks.
func Workbook(report models.Report, factoryName string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, err
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	f.SetColWidth(summarySheet, "A", "A", 28)
	f.SetColWidth(summarySheet, "B", "B", 24)

	title := fmt.Sprintf("%s %s report", factoryName, report.ReportType)
	f.SetCellValue(summarySheet, "A1", title)
	f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)
	f.SetCellValue(summarySheet, "A2", "Period")
	f.SetCellValue(summarySheet, "B2", fmt.Sprintf("%s to %s",
		report.PeriodStart.Format("2006-01-02"), report.PeriodEnd.Format("2006-01-02")))

	row := 4
	writeRow := func(label string, value any) {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), label)
		if value != nil {
			f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), value)
		}
		row++
	}

	scalars, sections := splitSummary(report.Summary)
	for _, key := range sortedKeys(scalars) {
		writeRow(key, scalars[key])
	}

	for _, name := range sortedKeys(sections) {
		row++
		section := sections[name]
		heading := name
		if label, ok := section["label"].(string); ok {
			heading = label
		}
		cell := fmt.Sprintf("A%d", row)
		f.SetCellValue(summarySheet, cell, heading)
		f.SetCellStyle(summarySheet, cell, cell, sectionStyle)
		row++
		for _, key := range sortedKeys(section) {
			if key == "label" {
				continue
			}
			writeRow(key, section[key])
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func splitSummary(summary map[string]any) (scalars map[string]any, sections map[string]map[string]any) {
	scalars = map[string]any{}
	sections = map[string]map[string]any{}
	for key, value := range summary {
		if nested, ok := value.(map[string]any); ok {
			sections[key] = nested
			continue
		}
		scalars[key] = value
	}
	return scalars, sections
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
