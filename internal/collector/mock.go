package collector

import (
	"context"
	"hash/fnv"
	"time"

	"PriceStation/internal/model"
)

// MockFetcher returns generated data for development and testing.
// Prices are deterministic per symbol and day.
type MockFetcher struct {
	Price  float64
	Schema model.Schema
	Now    func() time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchRange(_ context.Context, symbol string, r model.DateRange) ([]model.Observation, error) {
	base := m.Price
	if base == 0 {
		base = 100
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	schema := m.Schema
	if len(schema.Fields) == 0 {
		schema = model.MarketSchema
	}

	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := int(h.Sum32() % 1000)

	var obs []model.Observation
	for d := model.Day(r.From); !d.After(model.Day(r.To)); d = d.AddDate(0, 0, 1) {
		step := int(d.Unix()/86400) + seed
		p := base * (1 + float64(step%41-20)*0.001)
		fields := make(map[string]float64, len(schema.Fields))
		for _, name := range schema.Fields {
			switch name {
			case model.FieldHigh:
				fields[name] = p * 1.005
			case model.FieldLow:
				fields[name] = p * 0.995
			case model.FieldOpen, model.FieldBuy:
				fields[name] = p * 0.999
			case model.FieldVolume:
				fields[name] = 1000000
			default:
				fields[name] = p
			}
		}
		obs = append(obs, model.Observation{Time: d, Fields: fields, RecordedAt: now().UTC()})
	}
	return obs, nil
}
