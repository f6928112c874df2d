package processor

import (
	"GrowthDashboard/src/datasource/file"
	"GrowthDashboard/src/model"
	"GrowthDashboard/src/storage"
	"GrowthDashboard/src/utils"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// OrderDateLayout 源数据中 Order_Date 的格式(日-月-年)
const OrderDateLayout = "02-01-2006"

// 清洗时临时附加的原始行号列
const rowColumn = "__row"

// 准入检查的列：任意一列缺失则整行丢弃
var admissionColumns = []string{
	model.ColDeliveryPersonAge,
	model.ColTrafficDensity,
	model.ColCity,
	model.ColFestival,
	model.ColMultipleDeliveries,
}

// 需要去除首尾空白的文本列
var trimColumns = []string{
	model.ColID,
	model.ColTrafficDensity,
	model.ColTypeOfOrder,
	model.ColTypeOfVehicle,
	model.ColCity,
	model.ColFestival,
}

var (
	ErrNegativeCount = errors.New("不能为负数")
	ErrCleanSource   = errors.New("清洗前的数据无效")
)

// MalformedFieldError 某一行的字段无法转换为目标类型
type MalformedFieldError struct {
	Row    int // 数据行号，从1开始，不含表头
	Column string
	Value  string
	Err    error
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("第 %d 行字段 %s 的值 %q 无法解析: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *MalformedFieldError) Unwrap() error { return e.Err }

// CleanReport 一次清洗的行数统计
type CleanReport struct {
	Input    int `json:"input"`    // 原始行数
	Admitted int `json:"admitted"` // 通过准入检查的行数
	Skipped  int `json:"skipped"`  // 宽松模式下因字段错误跳过的行数
	Output   int `json:"output"`   // 最终行数
}

// Cleaner 把字符串类型的原始表转换为类型化的订单表
type Cleaner struct {
	Strict bool            // 严格模式：遇到错误行立即失败
	Logger *storage.Logger // 宽松模式下记录被跳过的行，可为 nil
}

// Clean 依次执行准入过滤、文本规整和类型转换
func (c *Cleaner) Clean(df dataframe.DataFrame) (*model.Table, CleanReport, error) {
	var report CleanReport

	if df.Err != nil {
		return nil, report, fmt.Errorf("%w: %v", ErrCleanSource, df.Err)
	}
	if err := file.ValidateColumns(df.Names()); err != nil {
		return nil, report, fmt.Errorf("%w: %w", ErrCleanSource, err)
	}
	if utils.HasColumn(df, rowColumn) {
		return nil, report, fmt.Errorf("%w: 列名 %s 为保留列名", ErrCleanSource, rowColumn)
	}

	report.Input = df.Nrow()
	if report.Input == 0 {
		return model.NewTable(nil), report, nil
	}

	// 1. 记录原始行号，过滤后仍能定位错误行
	rows := make([]int, df.Nrow())
	for i := range rows {
		rows[i] = i + 1
	}
	df = df.Mutate(series.New(rows, series.Int, rowColumn))

	// 2. 准入过滤
	df = admit(df)
	if df.Err != nil {
		return nil, report, fmt.Errorf("准入过滤失败: %w", df.Err)
	}
	report.Admitted = df.Nrow()

	// 3. 文本列去除首尾空白
	df = trim(df)
	if df.Err != nil {
		return nil, report, fmt.Errorf("文本规整失败: %w", df.Err)
	}

	// 4. 逐行转换类型
	orders, skipped, err := c.decode(df)
	if err != nil {
		return nil, report, err
	}
	report.Skipped = skipped
	report.Output = len(orders)

	return model.NewTable(orders), report, nil
}

// admit 五个条件的合取，逐列串联 Filter
func admit(df dataframe.DataFrame) dataframe.DataFrame {
	present := func(el series.Element) bool {
		return !file.IsMissing(el)
	}
	for _, col := range admissionColumns {
		if df.Nrow() == 0 {
			break
		}
		df = df.Filter(dataframe.F{
			Colname:    col,
			Comparator: series.CompFunc,
			Comparando: present,
		})
		if df.Err != nil {
			return df
		}
	}
	return df
}

func trim(df dataframe.DataFrame) dataframe.DataFrame {
	for _, col := range trimColumns {
		values := df.Col(col).Records()
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}
		df = df.Mutate(series.New(values, series.String, col))
	}
	return df
}

func (c *Cleaner) decode(df dataframe.DataFrame) ([]model.Order, int, error) {
	rowNums, err := df.Col(rowColumn).Int()
	if err != nil {
		return nil, 0, fmt.Errorf("读取行号失败: %w", err)
	}

	cols := make(map[string][]string, len(model.RequiredColumns))
	for _, name := range model.RequiredColumns {
		cols[name] = df.Col(name).Records()
	}

	orders := make([]model.Order, 0, df.Nrow())
	skipped := 0
	for i := 0; i < df.Nrow(); i++ {
		d := rowDecoder{row: rowNums[i], index: i, cols: cols}
		o := d.order()
		if d.err != nil {
			if c.Strict {
				return nil, skipped, d.err
			}
			skipped++
			if c.Logger != nil {
				c.Logger.Warningf("跳过格式错误的行: %v", d.err)
			}
			continue
		}
		orders = append(orders, o)
	}
	return orders, skipped, nil
}

// rowDecoder 解析单行，只保留第一个错误
type rowDecoder struct {
	row   int
	index int
	cols  map[string][]string
	err   error
}

func (d *rowDecoder) order() model.Order {
	o := model.Order{
		ID:                 d.text(model.ColID),
		DeliveryPersonID:   d.text(model.ColDeliveryPersonID),
		WeatherCondition:   d.text(model.ColWeather),
		RoadTrafficDensity: d.text(model.ColTrafficDensity),
		TypeOfOrder:        d.text(model.ColTypeOfOrder),
		TypeOfVehicle:      d.text(model.ColTypeOfVehicle),
		Festival:           d.text(model.ColFestival),
		City:               d.text(model.ColCity),
	}
	o.DeliveryPersonAge = d.count(model.ColDeliveryPersonAge)
	o.DeliveryPersonRating = d.float(model.ColDeliveryRating)
	o.Restaurant.Lat = d.float(model.ColRestaurantLat)
	o.Restaurant.Lon = d.float(model.ColRestaurantLon)
	o.Delivery.Lat = d.float(model.ColDeliveryLat)
	o.Delivery.Lon = d.float(model.ColDeliveryLon)
	o.OrderDate = d.date(model.ColOrderDate)
	o.VehicleCondition = d.integer(model.ColVehicleCondition)
	o.MultipleDeliveries = d.count(model.ColMultipleDeliveries)
	o.TimeTakenMinutes = d.timeTaken(model.ColTimeTaken)
	return o
}

func (d *rowDecoder) text(col string) string {
	return d.cols[col][d.index]
}

func (d *rowDecoder) fail(col, value string, err error) {
	if d.err == nil {
		d.err = &MalformedFieldError{Row: d.row, Column: col, Value: value, Err: err}
	}
}

func (d *rowDecoder) integer(col string) int {
	v := d.text(col)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		d.fail(col, v, err)
	}
	return n
}

// count 非负整数
func (d *rowDecoder) count(col string) int {
	n := d.integer(col)
	if n < 0 {
		d.fail(col, d.text(col), ErrNegativeCount)
		return 0
	}
	return n
}

func (d *rowDecoder) float(col string) float64 {
	v := d.text(col)
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		d.fail(col, v, err)
	}
	return f
}

func (d *rowDecoder) date(col string) time.Time {
	v := d.text(col)
	t, err := time.Parse(OrderDateLayout, strings.TrimSpace(v))
	if err != nil {
		d.fail(col, v, err)
	}
	return t
}

func (d *rowDecoder) timeTaken(col string) int {
	v := d.text(col)
	n, err := ParseTimeTaken(v)
	if err != nil {
		d.fail(col, v, err)
	}
	return n
}
