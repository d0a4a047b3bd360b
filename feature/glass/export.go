package glass

import (
	"fmt"
	"io"

	"glass-tracker/feature/glass/models"

	"github.com/xuri/excelize/v2"
)

const (
	worklistSheet = "Worklist"
	exportLimit   = 1000
	timeLayout    = "2006-01-02 15:04"
)

var worklistHeadings = []any{
	"ID", "Order Number", "Type", "Severity", "Ordered", "Delivered", "Expected",
	"Message", "Created", "Resolved", "Resolved By",
}

// WriteWorklist renders validations into a single-sheet workbook.
func WriteWorklist(w io.Writer, rows []models.GlassOrderValidation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", worklistSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(worklistSheet, "A1", &worklistHeadings); err != nil {
		return fmt.Errorf("failed to write headings: %w", err)
	}

	for i, v := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		resolved := ""
		if v.ResolvedAt != nil {
			resolved = v.ResolvedAt.Format(timeLayout)
		}
		values := []any{
			v.ID, v.OrderNumber, string(v.ValidationType), string(v.Severity),
			v.OrderedQuantity, v.DeliveredQuantity, v.ExpectedQuantity,
			v.Message, v.CreatedAt.Format(timeLayout), resolved, v.ResolvedBy,
		}
		if err := f.SetSheetRow(worklistSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(worklistSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	_, err := f.WriteTo(w)
	return err
}
