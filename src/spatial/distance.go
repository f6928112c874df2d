package spatial

import (
	"GrowthDashboard/src/model"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm 地球平均半径(公里)
const EarthRadiusKm = 6371.0

// HaversineKm 计算两点之间的大圆距离(公里)
// s2.LatLng.Distance 内部即为 haversine 公式，结果对参数顺序对称
func HaversineKm(a, b model.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}
