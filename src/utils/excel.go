package utils

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// Sheet 导出到工作簿中的一张汇总表
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// HasColumn 判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// FrameSheet 把 DataFrame 按原列顺序转换为 Sheet
func FrameSheet(name string, df dataframe.DataFrame) Sheet {
	sheet := Sheet{Name: name, Header: df.Names()}

	cols := make([][]string, len(sheet.Header))
	for i, colName := range sheet.Header {
		cols[i] = df.Col(colName).Records()
	}
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		row := make([]interface{}, len(cols))
		for colIdx := range cols {
			row[colIdx] = cols[colIdx][rowIdx]
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// WriteWorkbook 每个 Sheet 写成一个工作表，直接写入 w，不落盘
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("没有可导出的工作表")
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, s := range sheets {
		if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("创建工作表 %s 失败: %w", s.Name, err)
		}

		// 写入列名
		for i, name := range s.Header {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(s.Name, cell, name); err != nil {
				return fmt.Errorf("写入表头失败: %w", err)
			}
		}

		// 写入数据
		for rowIdx, row := range s.Rows {
			for colIdx, val := range row {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
				if err := f.SetCellValue(s.Name, cell, val); err != nil {
					return fmt.Errorf("写入 %s!%s 失败: %w", s.Name, cell, err)
				}
			}
		}
	}

	// 删除默认的 Sheet1，除非它正好被使用
	if !sheetNamed(sheets, "Sheet1") {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("删除默认工作表失败: %w", err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出Excel失败: %w", err)
	}
	return nil
}

func sheetNamed(sheets []Sheet, name string) bool {
	for _, s := range sheets {
		if s.Name == name {
			return true
		}
	}
	return false
}
