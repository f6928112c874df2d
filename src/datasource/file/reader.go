// reader.go
package file

import (
	"GrowthDashboard/src/model"
	"GrowthDashboard/src/utils"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MissingSentinel 源数据中表示缺失值的占位文本(末尾空格有意义)
const MissingSentinel = "NaN "

var (
	// ErrMissingColumn 数据源缺少必需的列
	ErrMissingColumn = errors.New("数据源缺少必需的列")
	// ErrUnsupportedFormat 不支持的文件扩展名
	ErrUnsupportedFormat = errors.New("不支持的数据源格式")
	// ErrUnknownEncoding 配置了无法识别的文本编码
	ErrUnknownEncoding = errors.New("无法识别的文本编码")
)

// ReadOptions 读取数据源时的选项
type ReadOptions struct {
	Encoding  string // utf-8(默认) / latin1 / gb18030
	SheetName string // 仅 xlsx 使用，为空取第一个工作表
}

// IsMissing 只认占位文本 "NaN "，其他写法("NA"、"NaN"、空串)交给类型转换处理
func IsMissing(el series.Element) bool {
	return el.String() == MissingSentinel
}

// LoadOptions 所有列按字符串读入，不做类型推断，也不把 "NA" 等文本替换为 NaN
func LoadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	}
}

// ReadSource 按扩展名选择 csv 或 xlsx 读取方式，并校验表头
func ReadSource(path string, opts ReadOptions) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		df, err = ReadCSVToDataFrame(path, opts)
	case ".xlsx":
		df, err = ReadXLSXToDataFrame(path, opts.SheetName)
	default:
		return dataframe.New(), fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return dataframe.New(), err
	}

	if err := ValidateColumns(df.Names()); err != nil {
		return dataframe.New(), fmt.Errorf("%s: %w", path, err)
	}
	return df, nil
}

// ValidateColumns 检查表头包含全部必需列
func ValidateColumns(names []string) error {
	for _, col := range model.RequiredColumns {
		if !utils.Contains(names, col) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return nil
}

// ReadCSVToDataFrame 读取 csv 文件，所有列均保持字符串类型
func ReadCSVToDataFrame(path string, opts ReadOptions) (dataframe.DataFrame, error) {
	decoder, err := decoderFor(opts.Encoding)
	if err != nil {
		return dataframe.New(), err
	}

	f, err := os.Open(path)
	if err != nil {
		return dataframe.New(), fmt.Errorf("打开csv文件失败: %w", err)
	}
	defer f.Close()

	// 1. 统一转码为 utf-8
	data, err := io.ReadAll(transform.NewReader(f, decoder))
	if err != nil {
		return dataframe.New(), fmt.Errorf("读取csv文件失败: %w", err)
	}

	// 2. 只有表头没有数据行时返回空表
	header, empty, err := peekHeader(data)
	if err != nil {
		return dataframe.New(), fmt.Errorf("解析csv表头失败: %w", err)
	}
	if empty {
		return emptyFrame(header), nil
	}

	// 3. 关闭类型推断，交给清洗阶段逐列转换
	df := dataframe.ReadCSV(bytes.NewReader(data), LoadOptions()...)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("转换DataFrame失败: %w", df.Err)
	}
	return df, nil
}

func peekHeader(data []byte) ([]string, bool, error) {
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err == io.EOF {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if _, err := r.Read(); err == io.EOF {
		return header, true, nil
	}
	return header, false, nil
}

func emptyFrame(headers []string) dataframe.DataFrame {
	if len(headers) == 0 {
		return dataframe.New()
	}
	cols := make([]series.Series, len(headers))
	for i, name := range headers {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

func decoderFor(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		// 去掉可能存在的 BOM
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "gb18030", "gbk":
		return simplifiedchinese.GB18030.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, encoding)
	}
}

// ReadXLSXToDataFrame 读取 xlsx 工作表，第一行为表头
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("打开xlsx文件失败: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("工作表 %s 不存在: %s", sheetName, filePath)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet), nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) dataframe.DataFrame {
	if len(sheet.Rows) == 0 {
		return dataframe.New()
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}
	// 去掉表头末尾的空单元格
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		if row == nil || blankRow(row) {
			continue
		}
		for i := range headers {
			// 缺少的单元格补空字符串，保证各列等长
			value := ""
			if i < len(row.Cells) {
				value = row.Cells[i].Value
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}
	return dataframe.New(seriesList...)
}

func blankRow(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}
