package processor

import (
	"GrowthDashboard/src/config"
	"GrowthDashboard/src/datasource/file"
	"GrowthDashboard/src/model"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 一行合法的原始数据，与数据集中的写法一致(部分文本带尾随空格)
var baseRaw = map[string]string{
	model.ColID:                 "0x4607 ",
	model.ColDeliveryPersonID:   "INDORES13DEL02 ",
	model.ColDeliveryPersonAge:  "37",
	model.ColDeliveryRating:     "4.9",
	model.ColRestaurantLat:      "22.745049",
	model.ColRestaurantLon:      "75.892471",
	model.ColDeliveryLat:        "22.765049",
	model.ColDeliveryLon:        "75.912471",
	model.ColOrderDate:          "19-03-2022",
	model.ColWeather:            "conditions Sunny",
	model.ColTrafficDensity:     "High ",
	model.ColVehicleCondition:   "2",
	model.ColTypeOfOrder:        "Snack ",
	model.ColTypeOfVehicle:      "motorcycle ",
	model.ColMultipleDeliveries: "0",
	model.ColFestival:           "No ",
	model.ColCity:               "Urban ",
	model.ColTimeTaken:          "(min) 24",
}

func rawRow(overrides map[string]string) []string {
	row := make([]string, len(model.RequiredColumns))
	for i, col := range model.RequiredColumns {
		row[i] = baseRaw[col]
		if v, ok := overrides[col]; ok {
			row[i] = v
		}
	}
	return row
}

func rawFrame(rows ...[]string) dataframe.DataFrame {
	if len(rows) == 0 {
		cols := make([]series.Series, len(model.RequiredColumns))
		for i, col := range model.RequiredColumns {
			cols[i] = series.New([]string{}, series.String, col)
		}
		return dataframe.New(cols...)
	}
	records := append([][]string{model.RequiredColumns}, rows...)
	return dataframe.LoadRecords(records, file.LoadOptions()...)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// mkOrder 在一条默认订单上应用修改
func mkOrder(edit func(o *model.Order)) model.Order {
	o := model.Order{
		ID:                   "0x4607",
		DeliveryPersonID:     "INDORES13DEL02 ",
		DeliveryPersonAge:    37,
		DeliveryPersonRating: 4.9,
		Restaurant:           model.Coordinates{Lat: 22.745049, Lon: 75.892471},
		Delivery:             model.Coordinates{Lat: 22.765049, Lon: 75.912471},
		OrderDate:            day(2022, 3, 19),
		WeatherCondition:     "conditions Sunny",
		RoadTrafficDensity:   "High",
		VehicleCondition:     2,
		TypeOfOrder:          "Snack",
		TypeOfVehicle:        "motorcycle",
		MultipleDeliveries:   0,
		Festival:             "No",
		City:                 "Urban",
		TimeTakenMinutes:     24,
	}
	if edit != nil {
		edit(&o)
	}
	return o
}

// config2022 默认的截止日期 2022-04-01
func config2022() config.Date {
	return config.Date(day(2022, 4, 1))
}
