package entities

import "time"

// ScrapingTask is a unit of scrape work queued by the external scraper.
type ScrapingTask struct {
	ID        int
	URL       string
	Platform  string
	CreatedAt time.Time
}

type ArbitraryData struct {
	ID    string `gorm:"primaryKey"`
	Value []byte
}
