package store

import "time"

// LookupRecord is one resolved phishing check kept for auditing.
type LookupRecord struct {
	ID               uint   `gorm:"primaryKey"`
	Domain           string `gorm:"size:255"`
	DomainNormalized string `gorm:"size:255;index"`
	IsPhishing       bool   `gorm:"index"`
	Message          string `gorm:"type:text"`
	Outcome          string `gorm:"size:32;index"`
	UpstreamStatus   int
	DurationMs       int64
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
}

// LookupQuery filters the lookup history.
type LookupQuery struct {
	Domain string
	Limit  int
}
