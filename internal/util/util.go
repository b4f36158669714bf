// Package util provides utility functions for gopherlist.
package util

import (
	"fmt"
	"strings"
	"time"
)

// Empty checks if a string is empty or contains only whitespace.
func Empty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// SizeofFmt formats a byte size for human display.
func SizeofFmt(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FormatDatetime formats a time for display.
func FormatDatetime(t time.Time, format string) string {
	switch format {
	case "date":
		return t.Format("2006-01-02")
	case "medium":
		return t.Format("2006-01-02 15:04")
	case "full":
		return t.Format("2006-01-02 15:04:05")
	case "deltanow":
		return StrfDeltaRound(time.Since(t), "second")
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}

// StrfDeltaRound formats a duration with the given precision.
func StrfDeltaRound(d time.Duration, precision string) string {
	if d < 0 {
		d = -d
	}

	seconds := int(d.Seconds())
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	if days > 0 {
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	if hours > 0 {
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	if minutes > 0 {
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	}
	if seconds == 1 {
		return "1 second ago"
	}
	return fmt.Sprintf("%d seconds ago", seconds)
}

// Pluralize returns the singular or plural form based on count.
func Pluralize(count int, plural, singular string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// IntOrNil parses a string to int, returning nil on failure.
func IntOrNil(s string) *int {
	if s == "" {
		return nil
	}
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return nil
	}
	return &i
}

// Pagination describes one page of a paged listing.
type Pagination struct {
	Page    int
	Pages   int
	Total   int64
	HasPrev bool
	HasNext bool
	Prev    int
	Next    int
}

// Paginate computes pagination state for a listing of total items with
// perPage items per page. The requested page is clamped into range; a
// listing always has at least one page, even when empty.
func Paginate(total int64, page, perPage int) Pagination {
	if perPage < 1 {
		perPage = 1
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	return Pagination{
		Page:    page,
		Pages:   pages,
		Total:   total,
		HasPrev: page > 1,
		HasNext: page < pages,
		Prev:    page - 1,
		Next:    page + 1,
	}
}
