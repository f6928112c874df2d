package spatial

import (
	"math"
	"testing"

	"GrowthDashboard/src/model"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKmSamePointIsZero(t *testing.T) {
	p := model.Coordinates{Lat: 22.745049, Lon: 75.892471}
	assert.Equal(t, 0.0, HaversineKm(p, p))
}

func TestHaversineKmSymmetric(t *testing.T) {
	a := model.Coordinates{Lat: 12.913041, Lon: 77.683237}
	b := model.Coordinates{Lat: 13.043041, Lon: 77.813237}
	assert.Equal(t, HaversineKm(a, b), HaversineKm(b, a))
}

func TestHaversineKmKnownDistances(t *testing.T) {
	// 赤道上经度相差1度约为 111.19 公里
	d := HaversineKm(model.Coordinates{Lat: 0, Lon: 0}, model.Coordinates{Lat: 0, Lon: 1})
	assert.InDelta(t, 111.195, d, 0.01)

	// 对跖点为半个周长
	d = HaversineKm(model.Coordinates{Lat: 0, Lon: 0}, model.Coordinates{Lat: 0, Lon: 180})
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 0.01)

	// 订单数据中的典型距离
	d = HaversineKm(
		model.Coordinates{Lat: 22.745049, Lon: 75.892471},
		model.Coordinates{Lat: 22.765049, Lon: 75.912471},
	)
	assert.InDelta(t, 3.025, d, 0.01)
}
