package processor

import (
	"GrowthDashboard/src/config"
	"GrowthDashboard/src/model"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ColDistance 导出时追加的距离列
const ColDistance = "distance"

// OrdersFrame 把订单表还原为 DataFrame(源列名加距离列)，用于导出行级数据
func OrdersFrame(t *model.Table) dataframe.DataFrame {
	orders := t.Orders()
	n := len(orders)

	var (
		ids, deliverers, dates, weathers    = make([]string, n), make([]string, n), make([]string, n), make([]string, n)
		densities, orderTypes, vehicleTypes = make([]string, n), make([]string, n), make([]string, n)
		festivals, cities                   = make([]string, n), make([]string, n)
		ages, vehicles, multiples, times    = make([]int, n), make([]int, n), make([]int, n), make([]int, n)
		ratings, rLats, rLons, dLats, dLons = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
		distances                           = make([]float64, n)
	)
	for i, o := range orders {
		ids[i], deliverers[i] = o.ID, o.DeliveryPersonID
		dates[i] = o.OrderDate.Format(config.DateLayout)
		weathers[i], densities[i] = o.WeatherCondition, o.RoadTrafficDensity
		orderTypes[i], vehicleTypes[i] = o.TypeOfOrder, o.TypeOfVehicle
		festivals[i], cities[i] = o.Festival, o.City
		ages[i], vehicles[i] = o.DeliveryPersonAge, o.VehicleCondition
		multiples[i], times[i] = o.MultipleDeliveries, o.TimeTakenMinutes
		ratings[i] = o.DeliveryPersonRating
		rLats[i], rLons[i] = o.Restaurant.Lat, o.Restaurant.Lon
		dLats[i], dLons[i] = o.Delivery.Lat, o.Delivery.Lon
		distances[i] = OrderDistance(o)
	}

	return dataframe.New(
		series.New(ids, series.String, model.ColID),
		series.New(deliverers, series.String, model.ColDeliveryPersonID),
		series.New(ages, series.Int, model.ColDeliveryPersonAge),
		series.New(ratings, series.Float, model.ColDeliveryRating),
		series.New(rLats, series.Float, model.ColRestaurantLat),
		series.New(rLons, series.Float, model.ColRestaurantLon),
		series.New(dLats, series.Float, model.ColDeliveryLat),
		series.New(dLons, series.Float, model.ColDeliveryLon),
		series.New(dates, series.String, model.ColOrderDate),
		series.New(weathers, series.String, model.ColWeather),
		series.New(densities, series.String, model.ColTrafficDensity),
		series.New(vehicles, series.Int, model.ColVehicleCondition),
		series.New(orderTypes, series.String, model.ColTypeOfOrder),
		series.New(vehicleTypes, series.String, model.ColTypeOfVehicle),
		series.New(multiples, series.Int, model.ColMultipleDeliveries),
		series.New(festivals, series.String, model.ColFestival),
		series.New(cities, series.String, model.ColCity),
		series.New(times, series.Int, model.ColTimeTaken),
		series.New(distances, series.Float, ColDistance),
	)
}
