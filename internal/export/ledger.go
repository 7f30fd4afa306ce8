package export

import (
	"fmt"
	"time"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/xuri/excelize/v2"
)

var ledgerHeaders = []string{
	"流水编号", "变动类型", "数量", "单位成本", "总成本", "变动后在库", "关联单据", "备注", "变动时间",
}

// MovementLedger 导出物料库存流水为xlsx，流水正序，末行校验期末在库
func MovementLedger(item *entity.InventoryItem, movements []entity.StockMovement) (*excelize.File, string, error) {
	f := excelize.NewFile()
	sheet := "Ledger"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// 首行物料信息
	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s (%s)  在库: %.4f %s", item.Name, item.SKU, item.QuantityOnHand, item.Unit))

	// 写入表头
	for i, h := range ledgerHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s2", col)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 写入流水行
	for rowIdx, m := range movements {
		row := rowIdx + 3
		signed := entity.MovementEffect(m.MovementType, m.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), m.MovementNumber)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), m.MovementType)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), signed)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), m.UnitCost)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), m.TotalCost)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), m.QuantityAfterMovement)
		if m.ReferenceType != "" {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), fmt.Sprintf("%s:%s", m.ReferenceType, m.ReferenceID))
		}
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), m.Notes)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), m.MovementDate.Format("2006-01-02 15:04:05"))
	}

	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "I", "I", 20)

	filename := fmt.Sprintf("ledger_%s_%s.xlsx", item.SKU, time.Now().Format("20060102"))
	return f, filename, nil
}
