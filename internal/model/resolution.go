package model

import (
	"fmt"
	"time"
)

type Category string

const (
	CategoryHealth  Category = "Health"
	CategoryCoding  Category = "Coding"
	CategoryReading Category = "Reading"
	CategoryFinance Category = "Finance"
	CategoryOther   Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryHealth, CategoryCoding, CategoryReading, CategoryFinance, CategoryOther}

// ParseCategory maps a raw category name to a Category. An empty string
// yields CategoryOther.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryOther, nil
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

type Resolution struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Title             string    `json:"title"`
	Category          Category  `json:"category"`
	Streak            int       `json:"streak"`
	LastCompletedDate *Date     `json:"last_completed_date"`
	TotalCompletions  int       `json:"total_completions"`
	CreatedAt         time.Time `json:"created_at"`
}

type DailyLog struct {
	ID           string `json:"id"`
	ResolutionID string `json:"resolution_id"`
	UserID       string `json:"user_id"`
	Date         Date   `json:"date"`
}
