package processor

import (
	"GrowthDashboard/src/model"
	"GrowthDashboard/src/utils"
	"errors"
	"fmt"
)

// ViewName 三个视角的名称
type ViewName string

const (
	ViewCompany     ViewName = "company"
	ViewDeliverers  ViewName = "deliverers"
	ViewRestaurants ViewName = "restaurants"
)

// ViewNames 全部视角，按展示顺序
var ViewNames = []ViewName{ViewCompany, ViewDeliverers, ViewRestaurants}

var ErrUnknownView = errors.New("未知的视角")

// ParseViewName 校验视角名称
func ParseViewName(s string) (ViewName, error) {
	for _, v := range ViewNames {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownView, s)
}

// View 任一视角的汇总结果，可导出为工作表
type View interface {
	Sheets() []utils.Sheet
}

// CompanyView 公司视角
type CompanyView struct {
	Filter                    FilterSpec         `json:"filter"`
	Rows                      int                `json:"rows"`
	OrdersPerDay              []DayCount         `json:"orders_per_day"`
	TrafficShare              []TrafficShare     `json:"traffic_share"`
	CityTraffic               []CityTrafficCount `json:"city_traffic"`
	OrdersPerWeek             []WeekCount        `json:"orders_per_week"`
	OrdersPerDelivererPerWeek []WeekRatio        `json:"orders_per_deliverer_per_week"`
	LocationMedians           []LocationMedian   `json:"location_medians"`
}

// DelivererView 配送员视角
type DelivererView struct {
	Filter               FilterSpec        `json:"filter"`
	Rows                 int               `json:"rows"`
	Metrics              *DelivererMetrics `json:"metrics"`
	AvgRatingByDeliverer []DelivererRating `json:"avg_rating_by_deliverer"`
	RatingByTraffic      []GroupStats      `json:"rating_by_traffic"`
	RatingByWeather      []GroupStats      `json:"rating_by_weather"`
	Fastest              []DelivererTime   `json:"fastest"`
	Slowest              []DelivererTime   `json:"slowest"`
}

// RestaurantView 餐厅视角，节日统计与距离保留两位小数
type RestaurantView struct {
	Filter              FilterSpec      `json:"filter"`
	Rows                int             `json:"rows"`
	UniqueDeliverers    int             `json:"unique_deliverers"`
	AvgDistance         model.NullFloat `json:"avg_distance"`
	Festival            []FestivalStats `json:"festival"`
	DistanceByCity      []CityDistance  `json:"distance_by_city"`
	TimeByCity          []TimeStats     `json:"time_by_city"`
	TimeByCityOrderType []TimeStats     `json:"time_by_city_order_type"`
	TimeByCityTraffic   []TimeStats     `json:"time_by_city_traffic"`
}

// BuildCompanyView t 为已筛选的订单表
func BuildCompanyView(t *model.Table, spec FilterSpec) CompanyView {
	return CompanyView{
		Filter:                    spec,
		Rows:                      t.Len(),
		OrdersPerDay:              OrdersPerDay(t),
		TrafficShare:              OrdersByTrafficShare(t),
		CityTraffic:               OrdersByCityTraffic(t),
		OrdersPerWeek:             OrdersPerWeek(t),
		OrdersPerDelivererPerWeek: OrdersPerDelivererPerWeek(t),
		LocationMedians:           DelivererLocationMedians(t),
	}
}

func BuildDelivererView(t *model.Table, spec FilterSpec, topN int) DelivererView {
	return DelivererView{
		Filter:               spec,
		Rows:                 t.Len(),
		Metrics:              DelivererMetricsOf(t),
		AvgRatingByDeliverer: AvgRatingByDeliverer(t),
		RatingByTraffic:      RatingStatsByTraffic(t),
		RatingByWeather:      RatingStatsByWeather(t),
		Fastest:              FastestDeliverers(t, topN),
		Slowest:              SlowestDeliverers(t, topN),
	}
}

func BuildRestaurantView(t *model.Table, spec FilterSpec) RestaurantView {
	festival := FestivalTimeStats(t)
	for i := range festival {
		festival[i].Mean = round2(festival[i].Mean)
		festival[i].Std = round2(festival[i].Std)
	}

	distances := AvgDistanceByCity(t)
	for i := range distances {
		distances[i].AvgDistance = round2(distances[i].AvgDistance)
	}

	return RestaurantView{
		Filter:              spec,
		Rows:                t.Len(),
		UniqueDeliverers:    UniqueDeliverers(t),
		AvgDistance:         round2(AvgDistance(t)),
		Festival:            festival,
		DistanceByCity:      distances,
		TimeByCity:          TimeStatsByCity(t),
		TimeByCityOrderType: TimeStatsByCityOrderType(t),
		TimeByCityTraffic:   TimeStatsByCityTraffic(t),
	}
}

func round2(n model.NullFloat) model.NullFloat {
	if !n.Valid {
		return n
	}
	return model.Float(utils.Round2(n.Value))
}

// cell 未定义的数值在工作表中写成 "N/A"
func cell(n model.NullFloat) interface{} {
	if !n.Valid {
		return n.String()
	}
	return n.Value
}

func (v CompanyView) Sheets() []utils.Sheet {
	day := utils.Sheet{Name: "orders_per_day", Header: []string{"date", "count"}}
	for _, r := range v.OrdersPerDay {
		day.Rows = append(day.Rows, []interface{}{r.Date.String(), r.Count})
	}

	share := utils.Sheet{Name: "traffic_share", Header: []string{"density", "count", "share"}}
	for _, r := range v.TrafficShare {
		share.Rows = append(share.Rows, []interface{}{r.Density, r.Count, r.Share})
	}

	cityTraffic := utils.Sheet{Name: "city_traffic", Header: []string{"city", "density", "count"}}
	for _, r := range v.CityTraffic {
		cityTraffic.Rows = append(cityTraffic.Rows, []interface{}{r.City, r.Density, r.Count})
	}

	week := utils.Sheet{Name: "orders_per_week", Header: []string{"week", "count"}}
	for _, r := range v.OrdersPerWeek {
		week.Rows = append(week.Rows, []interface{}{r.Week, r.Count})
	}

	ratio := utils.Sheet{Name: "orders_per_deliverer_week", Header: []string{"week", "orders", "deliverers", "ratio"}}
	for _, r := range v.OrdersPerDelivererPerWeek {
		ratio.Rows = append(ratio.Rows, []interface{}{r.Week, r.Orders, r.Deliverers, r.Ratio})
	}

	medians := utils.Sheet{Name: "location_medians", Header: []string{"city", "density", "lat", "lon"}}
	for _, r := range v.LocationMedians {
		medians.Rows = append(medians.Rows, []interface{}{r.City, r.Density, r.Lat, r.Lon})
	}

	return []utils.Sheet{day, share, cityTraffic, week, ratio, medians}
}

func (v DelivererView) Sheets() []utils.Sheet {
	metrics := utils.Sheet{Name: "metrics", Header: []string{"max_age", "min_age", "best_vehicle_condition", "worst_vehicle_condition"}}
	if v.Metrics != nil {
		m := v.Metrics
		metrics.Rows = append(metrics.Rows, []interface{}{m.MaxAge, m.MinAge, m.BestVehicleCondition, m.WorstVehicleCondition})
	}

	ratings := utils.Sheet{Name: "avg_rating_by_deliverer", Header: []string{"deliverer_id", "avg_rating"}}
	for _, r := range v.AvgRatingByDeliverer {
		ratings.Rows = append(ratings.Rows, []interface{}{r.DelivererID, cell(r.AvgRating)})
	}

	sheets := []utils.Sheet{metrics, ratings,
		groupStatsSheet("rating_by_traffic", "density", v.RatingByTraffic),
		groupStatsSheet("rating_by_weather", "weather", v.RatingByWeather),
		delivererTimeSheet("fastest", v.Fastest),
		delivererTimeSheet("slowest", v.Slowest),
	}
	return sheets
}

func (v RestaurantView) Sheets() []utils.Sheet {
	overview := utils.Sheet{
		Name:   "overview",
		Header: []string{"rows", "unique_deliverers", "avg_distance"},
		Rows:   [][]interface{}{{v.Rows, v.UniqueDeliverers, cell(v.AvgDistance)}},
	}

	festival := utils.Sheet{Name: "festival", Header: []string{"festival", "mean", "std"}}
	for _, r := range v.Festival {
		festival.Rows = append(festival.Rows, []interface{}{r.Festival, cell(r.Mean), cell(r.Std)})
	}

	distance := utils.Sheet{Name: "distance_by_city", Header: []string{"city", "avg_distance"}}
	for _, r := range v.DistanceByCity {
		distance.Rows = append(distance.Rows, []interface{}{r.City, cell(r.AvgDistance)})
	}

	byCity := utils.Sheet{Name: "time_by_city", Header: []string{"city", "mean", "std"}}
	for _, r := range v.TimeByCity {
		byCity.Rows = append(byCity.Rows, []interface{}{r.City, cell(r.Mean), cell(r.Std)})
	}

	byOrderType := utils.Sheet{Name: "time_by_city_order_type", Header: []string{"city", "order_type", "mean", "std"}}
	for _, r := range v.TimeByCityOrderType {
		byOrderType.Rows = append(byOrderType.Rows, []interface{}{r.City, r.OrderType, cell(r.Mean), cell(r.Std)})
	}

	byTraffic := utils.Sheet{Name: "time_by_city_traffic", Header: []string{"city", "density", "mean", "std"}}
	for _, r := range v.TimeByCityTraffic {
		byTraffic.Rows = append(byTraffic.Rows, []interface{}{r.City, r.Density, cell(r.Mean), cell(r.Std)})
	}

	return []utils.Sheet{overview, festival, distance, byCity, byOrderType, byTraffic}
}

func groupStatsSheet(name, group string, rows []GroupStats) utils.Sheet {
	s := utils.Sheet{Name: name, Header: []string{group, "mean", "std"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []interface{}{r.Group, cell(r.Mean), cell(r.Std)})
	}
	return s
}

func delivererTimeSheet(name string, rows []DelivererTime) utils.Sheet {
	s := utils.Sheet{Name: name, Header: []string{"city", "deliverer_id", "time"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []interface{}{r.City, r.DelivererID, r.Time})
	}
	return s
}
