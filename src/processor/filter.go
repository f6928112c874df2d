package processor

import (
	"GrowthDashboard/src/config"
	"GrowthDashboard/src/model"
	"GrowthDashboard/src/utils"
	"fmt"
	"sort"
	"strings"
	"time"
)

// FilterSpec 用户选择的筛选条件，各集合为空表示不匹配任何行
type FilterSpec struct {
	MaxDate           time.Time `json:"max_date"`
	Cities            []string  `json:"cities"`
	WeatherConditions []string  `json:"weather_conditions"`
	TrafficDensities  []string  `json:"traffic_densities"`
}

// DefaultFilterSpec 全部标签加上配置的默认截止日期
func DefaultFilterSpec(dcfg *config.DataConfig) FilterSpec {
	return FilterSpec{
		MaxDate:           dcfg.GetDefaultMaxDate(),
		Cities:            dcfg.GetCities(),
		WeatherConditions: dcfg.GetWeatherConditions(),
		TrafficDensities:  dcfg.GetTrafficDensities(),
	}
}

// Key 筛选条件的规范化字符串，集合内部排序，用于日志
func (s FilterSpec) Key() string {
	return fmt.Sprintf("date<%s|city=%s|weather=%s|traffic=%s",
		s.MaxDate.Format(config.DateLayout),
		canonical(s.Cities),
		canonical(s.WeatherConditions),
		canonical(s.TrafficDensities),
	)
}

func canonical(items []string) string {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Apply 返回满足全部条件的行：OrderDate 严格早于 MaxDate，且三个标签都精确命中
func Apply(t *model.Table, spec FilterSpec) *model.Table {
	cities := utils.Set(spec.Cities)
	weathers := utils.Set(spec.WeatherConditions)
	densities := utils.Set(spec.TrafficDensities)

	var kept []model.Order
	for _, o := range t.Orders() {
		if !o.OrderDate.Before(spec.MaxDate) {
			continue
		}
		if _, ok := cities[o.City]; !ok {
			continue
		}
		if _, ok := weathers[o.WeatherCondition]; !ok {
			continue
		}
		if _, ok := densities[o.RoadTrafficDensity]; !ok {
			continue
		}
		kept = append(kept, o)
	}
	return model.NewTable(kept)
}
