// order.go
package model

import (
	"encoding/json"
	"math"
	"time"
)

// 数据源列名
const (
	ColID                 = "ID"
	ColDeliveryPersonID   = "Delivery_person_ID"
	ColDeliveryPersonAge  = "Delivery_person_Age"
	ColDeliveryRating     = "Delivery_person_Ratings"
	ColRestaurantLat      = "Restaurant_latitude"
	ColRestaurantLon      = "Restaurant_longitude"
	ColDeliveryLat        = "Delivery_location_latitude"
	ColDeliveryLon        = "Delivery_location_longitude"
	ColOrderDate          = "Order_Date"
	ColWeather            = "Weatherconditions"
	ColTrafficDensity     = "Road_traffic_density"
	ColVehicleCondition   = "Vehicle_condition"
	ColTypeOfOrder        = "Type_of_order"
	ColTypeOfVehicle      = "Type_of_vehicle"
	ColMultipleDeliveries = "multiple_deliveries"
	ColFestival           = "Festival"
	ColCity               = "City"
	ColTimeTaken          = "Time_taken(min)"
)

// RequiredColumns 数据源必须包含的列
var RequiredColumns = []string{
	ColID, ColDeliveryPersonID, ColDeliveryPersonAge, ColDeliveryRating,
	ColRestaurantLat, ColRestaurantLon, ColDeliveryLat, ColDeliveryLon,
	ColOrderDate, ColWeather, ColTrafficDensity, ColVehicleCondition,
	ColTypeOfOrder, ColTypeOfVehicle, ColMultipleDeliveries, ColFestival,
	ColCity, ColTimeTaken,
}

// 固定的标签集合
var (
	Cities = []string{"Metropolitian", "Urban", "Semi-Urban"}

	WeatherConditions = []string{
		"conditions Cloudy", "conditions Fog", "conditions Sandstorms",
		"conditions Stormy", "conditions Sunny", "conditions Windy",
	}

	TrafficDensities = []string{"Low", "Medium", "High", "Jam"}
)

// Coordinates 经纬度(十进制度)
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Order 清洗后的一条订单记录
type Order struct {
	ID                   string      `json:"id"`
	DeliveryPersonID     string      `json:"delivery_person_id"`
	DeliveryPersonAge    int         `json:"delivery_person_age"`
	DeliveryPersonRating float64     `json:"delivery_person_rating"`
	Restaurant           Coordinates `json:"restaurant_location"`
	Delivery             Coordinates `json:"delivery_location"`
	OrderDate            time.Time   `json:"order_date"`
	WeatherCondition     string      `json:"weather_condition"`
	RoadTrafficDensity   string      `json:"road_traffic_density"`
	VehicleCondition     int         `json:"vehicle_condition"`
	TypeOfOrder          string      `json:"type_of_order"`
	TypeOfVehicle        string      `json:"type_of_vehicle"`
	MultipleDeliveries   int         `json:"multiple_deliveries"`
	Festival             string      `json:"festival"`
	City                 string      `json:"city"`
	TimeTakenMinutes     int         `json:"time_taken_minutes"`
}

// Table 清洗后的只读订单表
type Table struct {
	orders []Order
}

// NewTable 用给定记录构建订单表，调用方之后不应再修改 orders
func NewTable(orders []Order) *Table {
	return &Table{orders: orders}
}

// Len 返回行数，nil 表视为空表
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.orders)
}

// Orders 返回底层记录，只读
func (t *Table) Orders() []Order {
	if t == nil {
		return nil
	}
	return t.orders
}

// NullFloat 聚合结果中可能未定义的数值(例如单元素分组的标准差)
type NullFloat struct {
	Value float64
	Valid bool
}

// Float 构造 NullFloat，NaN 与 Inf 视为未定义
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Value: v, Valid: true}
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// String 未定义时显示 "N/A"
func (n NullFloat) String() string {
	if !n.Valid {
		return "N/A"
	}
	b, _ := json.Marshal(n.Value)
	return string(b)
}
