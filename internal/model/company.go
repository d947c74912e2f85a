package model

// Company is a listed entity the user can research.
type Company struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
}

// CompanySummary carries headline market data for the company sidebar.
type CompanySummary struct {
	Company
	MarketCapMillions float64 `json:"market_cap_millions"`
	SharePrice        float64 `json:"share_price"`
	PriceDiff90d      float64 `json:"price_diff_90d"`
	Price52WeekHigh   float64 `json:"price_52w_high"`
	Price52WeekLow    float64 `json:"price_52w_low"`
	WebsiteURL        string  `json:"website_url,omitempty"`
}
