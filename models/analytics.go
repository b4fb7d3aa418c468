package models

import "time"

type PageView struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"userId"`
	SessionDuration int       `json:"sessionDuration"`
	DeviceType      string    `json:"deviceType"`
	Country         string    `json:"country"`
	VisitorHash     string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
}

type LinkClick struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	LinkID      string    `json:"linkId"`
	DeviceType  string    `json:"deviceType"`
	Country     string    `json:"country"`
	VisitorHash string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DeviceCount is a row of get_device_stats.
type DeviceCount struct {
	DeviceType string
	Count      int
}

// CountryCount is a row of get_geo_stats.
type CountryCount struct {
	Country string
	Count   int
}

// LinkClickCount is the click total of one link inside a window.
type LinkClickCount struct {
	LinkID string
	Title  string
	URL    string
	Clicks int
}

type DeviceShare struct {
	Device     string  `json:"device"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type LocationCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

type LinkPerformance struct {
	LinkID           string  `json:"linkId"`
	Title            string  `json:"title"`
	URL              string  `json:"url"`
	Clicks           int     `json:"clicks"`
	ClickThroughRate float64 `json:"clickThroughRate"`
}

type Trends struct {
	Views            float64 `json:"views"`
	Clicks           float64 `json:"clicks"`
	SessionDuration  float64 `json:"sessionDuration"`
	BounceRate       float64 `json:"bounceRate"`
	ClickThroughRate float64 `json:"clickThroughRate"`
}

// Metrics is the dashboard summary for one time range. Percentages are on a
// 0-100 scale and durations are in seconds.
type Metrics struct {
	TimeRange          string            `json:"timeRange"`
	From               time.Time         `json:"from"`
	To                 time.Time         `json:"to"`
	TotalViews         int               `json:"totalViews"`
	TotalClicks        int               `json:"totalClicks"`
	AvgSessionDuration float64           `json:"avgSessionDuration"`
	BounceRate         float64           `json:"bounceRate"`
	ClickThroughRate   float64           `json:"clickThroughRate"`
	Trends             Trends            `json:"trends"`
	Devices            []DeviceShare     `json:"devices"`
	Locations          []LocationCount   `json:"locations"`
	TopLinks           []LinkPerformance `json:"topLinks"`
	Warnings           []string          `json:"warnings,omitempty"`
}
