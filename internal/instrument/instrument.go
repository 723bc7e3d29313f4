package instrument

// Instrument holds static metadata for a simulated security.
type Instrument struct {
	Symbol               string  `json:"symbol"`
	Name                 string  `json:"name"`
	PrevClose            float64 `json:"prevClose"` // reference close seeding the first session
	VolatilityMultiplier float64 `json:"volatilityMultiplier"`
}

// All returns the fixed roster of 16 fictional securities the market
// simulates. The roster never changes while the engine runs.
func All() []Instrument {
	return []Instrument{
		// Tech — mid-high volatility
		{"600106", "Hengxin Semiconductor", 45.80, 1.5},
		{"600233", "Lanyu Cloud Systems", 88.20, 1.4},
		{"300412", "Qixing Robotics", 31.45, 1.7},
		{"300588", "Tianhe Software", 56.90, 1.3},

		// Finance — low volatility
		{"601009", "Jiangnan Commercial Bank", 8.64, 0.6},
		{"601377", "Huaxin Securities", 14.25, 0.9},
		{"601628", "Yongan Life Insurance", 36.10, 0.7},

		// Consumer — low-mid volatility
		{"600519", "Chuanjiang Distillery", 1680.00, 0.8},
		{"600887", "Mudan Dairy Group", 28.35, 0.7},
		{"603288", "Haiwei Foods", 42.60, 0.8},

		// Healthcare
		{"600276", "Ruikang Pharmaceutical", 52.40, 0.9},
		{"300015", "Mingrui Eye Hospital", 21.88, 1.1},

		// Energy & industrial
		{"601088", "Beifang Coal Energy", 24.50, 1.0},
		{"601857", "Dalu Petroleum", 7.92, 0.8},
		{"600031", "Zhonggong Heavy Machinery", 16.70, 1.1},

		// The meme stock every office worker gossips about
		{"300750", "Xingchen Battery", 195.00, 1.8},
	}
}

// BySymbol returns a map from symbol to instrument for quick lookups.
func BySymbol() map[string]Instrument {
	all := All()
	m := make(map[string]Instrument, len(all))
	for _, inst := range all {
		m[inst.Symbol] = inst
	}
	return m
}
