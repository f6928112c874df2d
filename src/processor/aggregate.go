package processor

import (
	"GrowthDashboard/src/config"
	"GrowthDashboard/src/model"
	"GrowthDashboard/src/spatial"
	"GrowthDashboard/src/utils"
	"math"
	"sort"
	"time"
)

// DayCount 每日订单数
type DayCount struct {
	Date  config.Date `json:"date"`
	Count int         `json:"count"`
}

// TrafficShare 各交通密度的订单数与占比
type TrafficShare struct {
	Density string  `json:"density"`
	Count   int     `json:"count"`
	Share   float64 `json:"share"`
}

// CityTrafficCount 城市与交通密度组合的订单数
type CityTrafficCount struct {
	City    string `json:"city"`
	Density string `json:"density"`
	Count   int    `json:"count"`
}

// WeekCount 每周订单数，周按周日开始计算
type WeekCount struct {
	Week  int `json:"week"`
	Count int `json:"count"`
}

// WeekRatio 每周订单数除以当周不同配送员数
type WeekRatio struct {
	Week       int     `json:"week"`
	Orders     int     `json:"orders"`
	Deliverers int     `json:"deliverers"`
	Ratio      float64 `json:"ratio"`
}

// LocationMedian 城市与交通密度组合下送达位置的中位数
type LocationMedian struct {
	City    string  `json:"city"`
	Density string  `json:"density"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// DelivererRating 配送员平均评分
type DelivererRating struct {
	DelivererID string          `json:"deliverer_id"`
	AvgRating   model.NullFloat `json:"avg_rating"`
}

// GroupStats 分组的均值与样本标准差
type GroupStats struct {
	Group string          `json:"group"`
	Mean  model.NullFloat `json:"mean"`
	Std   model.NullFloat `json:"std"`
}

// DelivererTime 配送员在某城市的最短或最长配送时间
type DelivererTime struct {
	City        string `json:"city"`
	DelivererID string `json:"deliverer_id"`
	Time        int    `json:"time"`
}

// FestivalStats 是否节日的配送时间统计
type FestivalStats struct {
	Festival string          `json:"festival"`
	Mean     model.NullFloat `json:"mean"`
	Std      model.NullFloat `json:"std"`
}

// CityDistance 城市平均配送距离(公里)
type CityDistance struct {
	City        string          `json:"city"`
	AvgDistance model.NullFloat `json:"avg_distance"`
}

// TimeStats 配送时间统计，Density 与 OrderType 只在对应分组中出现
type TimeStats struct {
	City      string          `json:"city"`
	Density   string          `json:"density,omitempty"`
	OrderType string          `json:"order_type,omitempty"`
	Mean      model.NullFloat `json:"mean"`
	Std       model.NullFloat `json:"std"`
}

// DelivererMetrics 配送员概览指标
type DelivererMetrics struct {
	MaxAge                int `json:"max_age"`
	MinAge                int `json:"min_age"`
	BestVehicleCondition  int `json:"best_vehicle_condition"`
	WorstVehicleCondition int `json:"worst_vehicle_condition"`
}

// OrderDistance 餐厅到送达位置的球面距离(公里)，按需计算不写回记录
func OrderDistance(o model.Order) float64 {
	return spatial.HaversineKm(o.Restaurant, o.Delivery)
}

// WeekOfYear 与 strftime %U 一致：周日为一周开始，第一个周日之前为第0周
func WeekOfYear(d time.Time) int {
	return (d.YearDay() - 1 + 7 - int(d.Weekday())) / 7
}

type pair struct{ a, b string }

func lessPair(x, y pair) bool {
	if x.a != y.a {
		return x.a < y.a
	}
	return x.b < y.b
}

// groupBy 按首次出现的顺序返回分组键，以及每组取出的值
func groupBy[K comparable, V any](orders []model.Order, key func(model.Order) K, val func(model.Order) V) ([]K, map[K][]V) {
	var keys []K
	groups := make(map[K][]V)
	for _, o := range orders {
		k := key(o)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], val(o))
	}
	return keys, groups
}

func byCity(o model.Order) string         { return o.City }
func byDensity(o model.Order) string      { return o.RoadTrafficDensity }
func byCityDensity(o model.Order) pair    { return pair{o.City, o.RoadTrafficDensity} }
func countOne(model.Order) int            { return 1 }
func timeTaken(o model.Order) float64     { return float64(o.TimeTakenMinutes) }
func rating(o model.Order) float64        { return o.DeliveryPersonRating }
func orderWeek(o model.Order) int         { return WeekOfYear(o.OrderDate) }
func orderDeliverer(o model.Order) string { return o.DeliveryPersonID }
func orderDistance(o model.Order) float64 { return OrderDistance(o) }

func deliveryLocation(o model.Order) [2]float64 {
	return [2]float64{o.Delivery.Lat, o.Delivery.Lon}
}

func stats(xs []float64) (model.NullFloat, model.NullFloat) {
	return model.Float(utils.Mean(xs)), model.Float(utils.StdDev(xs))
}

// 评分可能为 NaN，统计时跳过
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// OrdersPerDay 每日订单数，按日期升序
func OrdersPerDay(t *model.Table) []DayCount {
	keys, groups := groupBy(t.Orders(), func(o model.Order) time.Time { return o.OrderDate }, countOne)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]DayCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, DayCount{Date: config.Date(k), Count: len(groups[k])})
	}
	return out
}

// OrdersByTrafficShare 各交通密度的订单占比，总和为1
func OrdersByTrafficShare(t *model.Table) []TrafficShare {
	keys, groups := groupBy(t.Orders(), byDensity, countOne)
	sort.Strings(keys)

	total := float64(t.Len())
	out := make([]TrafficShare, 0, len(keys))
	for _, k := range keys {
		n := len(groups[k])
		out = append(out, TrafficShare{Density: k, Count: n, Share: float64(n) / total})
	}
	return out
}

// OrdersByCityTraffic 城市与交通密度组合的订单数
func OrdersByCityTraffic(t *model.Table) []CityTrafficCount {
	keys, groups := groupBy(t.Orders(), byCityDensity, countOne)
	sort.Slice(keys, func(i, j int) bool { return lessPair(keys[i], keys[j]) })

	out := make([]CityTrafficCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, CityTrafficCount{City: k.a, Density: k.b, Count: len(groups[k])})
	}
	return out
}

// OrdersPerWeek 每周订单数
func OrdersPerWeek(t *model.Table) []WeekCount {
	keys, groups := groupBy(t.Orders(), orderWeek, countOne)
	sort.Ints(keys)

	out := make([]WeekCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, WeekCount{Week: k, Count: len(groups[k])})
	}
	return out
}

// OrdersPerDelivererPerWeek 每周订单数与不同配送员数按周内连接后相除
func OrdersPerDelivererPerWeek(t *model.Table) []WeekRatio {
	counts := OrdersPerWeek(t)

	_, deliverers := groupBy(t.Orders(), orderWeek, orderDeliverer)
	unique := make(map[int]int, len(deliverers))
	for week, ids := range deliverers {
		unique[week] = len(utils.Set(ids))
	}

	out := make([]WeekRatio, 0, len(counts))
	for _, c := range counts {
		n, ok := unique[c.Week]
		if !ok || n == 0 {
			continue
		}
		out = append(out, WeekRatio{
			Week:       c.Week,
			Orders:     c.Count,
			Deliverers: n,
			Ratio:      float64(c.Count) / float64(n),
		})
	}
	return out
}

// DelivererLocationMedians 送达位置经纬度的中位数，用于地图标记
func DelivererLocationMedians(t *model.Table) []LocationMedian {
	keys, groups := groupBy(t.Orders(), byCityDensity, deliveryLocation)
	sort.Slice(keys, func(i, j int) bool { return lessPair(keys[i], keys[j]) })

	out := make([]LocationMedian, 0, len(keys))
	for _, k := range keys {
		points := groups[k]
		lats := make([]float64, len(points))
		lons := make([]float64, len(points))
		for i, p := range points {
			lats[i], lons[i] = p[0], p[1]
		}
		out = append(out, LocationMedian{
			City:    k.a,
			Density: k.b,
			Lat:     utils.Median(lats),
			Lon:     utils.Median(lons),
		})
	}
	return out
}

// AvgRatingByDeliverer 每个配送员的平均评分
func AvgRatingByDeliverer(t *model.Table) []DelivererRating {
	keys, groups := groupBy(t.Orders(), orderDeliverer, rating)
	sort.Strings(keys)

	out := make([]DelivererRating, 0, len(keys))
	for _, k := range keys {
		out = append(out, DelivererRating{
			DelivererID: k,
			AvgRating:   model.Float(utils.Mean(finite(groups[k]))),
		})
	}
	return out
}

func ratingStats(t *model.Table, key func(model.Order) string) []GroupStats {
	keys, groups := groupBy(t.Orders(), key, rating)
	sort.Strings(keys)

	out := make([]GroupStats, 0, len(keys))
	for _, k := range keys {
		mean, std := stats(finite(groups[k]))
		out = append(out, GroupStats{Group: k, Mean: mean, Std: std})
	}
	return out
}

// RatingStatsByTraffic 按交通密度统计评分
func RatingStatsByTraffic(t *model.Table) []GroupStats {
	return ratingStats(t, byDensity)
}

// RatingStatsByWeather 按天气统计评分
func RatingStatsByWeather(t *model.Table) []GroupStats {
	return ratingStats(t, func(o model.Order) string { return o.WeatherCondition })
}

// FastestDeliverers 每个城市最短配送时间最小的前 n 名配送员
func FastestDeliverers(t *model.Table, n int) []DelivererTime {
	return topDeliverers(t, n, func(a, b int) bool { return a < b })
}

// SlowestDeliverers 每个城市最长配送时间最大的前 n 名配送员
func SlowestDeliverers(t *model.Table, n int) []DelivererTime {
	return topDeliverers(t, n, func(a, b int) bool { return a > b })
}

// topDeliverers 先按(城市, 配送员)取极值，再在城市内稳定排序取前 n
// 耗时相同的按配送员ID升序；城市按固定顺序拼接，其他城市不出现
func topDeliverers(t *model.Table, n int, better func(a, b int) bool) []DelivererTime {
	if n <= 0 {
		return nil
	}

	keys, groups := groupBy(t.Orders(), func(o model.Order) pair {
		return pair{o.City, o.DeliveryPersonID}
	}, func(o model.Order) int { return o.TimeTakenMinutes })

	perCity := make(map[string][]DelivererTime)
	for _, k := range keys {
		best := groups[k][0]
		for _, v := range groups[k][1:] {
			if better(v, best) {
				best = v
			}
		}
		perCity[k.a] = append(perCity[k.a], DelivererTime{City: k.a, DelivererID: k.b, Time: best})
	}

	var out []DelivererTime
	for _, city := range model.Cities {
		rows := perCity[city]
		sort.Slice(rows, func(i, j int) bool { return rows[i].DelivererID < rows[j].DelivererID })
		sort.SliceStable(rows, func(i, j int) bool { return better(rows[i].Time, rows[j].Time) })
		if len(rows) > n {
			rows = rows[:n]
		}
		out = append(out, rows...)
	}
	return out
}

// FestivalTimeStats 按是否节日统计配送时间(未取整)
func FestivalTimeStats(t *model.Table) []FestivalStats {
	keys, groups := groupBy(t.Orders(), func(o model.Order) string { return o.Festival }, timeTaken)
	sort.Strings(keys)

	out := make([]FestivalStats, 0, len(keys))
	for _, k := range keys {
		mean, std := stats(groups[k])
		out = append(out, FestivalStats{Festival: k, Mean: mean, Std: std})
	}
	return out
}

// AvgDistanceByCity 每个城市的平均配送距离
func AvgDistanceByCity(t *model.Table) []CityDistance {
	keys, groups := groupBy(t.Orders(), byCity, orderDistance)
	sort.Strings(keys)

	out := make([]CityDistance, 0, len(keys))
	for _, k := range keys {
		out = append(out, CityDistance{City: k, AvgDistance: model.Float(utils.Mean(groups[k]))})
	}
	return out
}

// TimeStatsByCity 按城市统计配送时间
func TimeStatsByCity(t *model.Table) []TimeStats {
	keys, groups := groupBy(t.Orders(), byCity, timeTaken)
	sort.Strings(keys)

	out := make([]TimeStats, 0, len(keys))
	for _, k := range keys {
		mean, std := stats(groups[k])
		out = append(out, TimeStats{City: k, Mean: mean, Std: std})
	}
	return out
}

// TimeStatsByCityTraffic 按城市与交通密度统计配送时间
func TimeStatsByCityTraffic(t *model.Table) []TimeStats {
	keys, groups := groupBy(t.Orders(), byCityDensity, timeTaken)
	sort.Slice(keys, func(i, j int) bool { return lessPair(keys[i], keys[j]) })

	out := make([]TimeStats, 0, len(keys))
	for _, k := range keys {
		mean, std := stats(groups[k])
		out = append(out, TimeStats{City: k.a, Density: k.b, Mean: mean, Std: std})
	}
	return out
}

// TimeStatsByCityOrderType 按城市与订单类型统计配送时间
func TimeStatsByCityOrderType(t *model.Table) []TimeStats {
	keys, groups := groupBy(t.Orders(), func(o model.Order) pair {
		return pair{o.City, o.TypeOfOrder}
	}, timeTaken)
	sort.Slice(keys, func(i, j int) bool { return lessPair(keys[i], keys[j]) })

	out := make([]TimeStats, 0, len(keys))
	for _, k := range keys {
		mean, std := stats(groups[k])
		out = append(out, TimeStats{City: k.a, OrderType: k.b, Mean: mean, Std: std})
	}
	return out
}

// DelivererMetricsOf 年龄与车辆状况的最大最小值，空表返回 nil
func DelivererMetricsOf(t *model.Table) *DelivererMetrics {
	orders := t.Orders()
	if len(orders) == 0 {
		return nil
	}

	m := &DelivererMetrics{
		MaxAge:                orders[0].DeliveryPersonAge,
		MinAge:                orders[0].DeliveryPersonAge,
		BestVehicleCondition:  orders[0].VehicleCondition,
		WorstVehicleCondition: orders[0].VehicleCondition,
	}
	for _, o := range orders[1:] {
		m.MaxAge = max(m.MaxAge, o.DeliveryPersonAge)
		m.MinAge = min(m.MinAge, o.DeliveryPersonAge)
		m.BestVehicleCondition = max(m.BestVehicleCondition, o.VehicleCondition)
		m.WorstVehicleCondition = min(m.WorstVehicleCondition, o.VehicleCondition)
	}
	return m
}

// UniqueDeliverers 不同配送员的数量
func UniqueDeliverers(t *model.Table) int {
	ids := make(map[string]struct{})
	for _, o := range t.Orders() {
		ids[o.DeliveryPersonID] = struct{}{}
	}
	return len(ids)
}

// AvgDistance 全部订单的平均配送距离，空表未定义
func AvgDistance(t *model.Table) model.NullFloat {
	distances := make([]float64, 0, t.Len())
	for _, o := range t.Orders() {
		distances = append(distances, OrderDistance(o))
	}
	return model.Float(utils.Mean(distances))
}
