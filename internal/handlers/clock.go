package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// eastern is the fixed reporting timezone. The formatted string always
// carries the literal "EST" suffix, matching the upstream contract even
// during daylight saving.
var eastern = loadEastern()

func loadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// HandleCurrentTime reports the current time of day in Eastern time.
func HandleCurrentTime(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"current_time": FormatEastern(time.Now()),
	})
}

// FormatEastern renders t as "<day><suffix> <Month> <year> <h>:<mm> <AM/PM>
// EST" in the America/New_York timezone.
func FormatEastern(t time.Time) string {
	t = t.In(eastern)

	day := t.Day()
	hour := t.Hour()
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	hour = hour % 12
	if hour == 0 {
		hour = 12
	}

	return fmt.Sprintf("%d%s %s %d %d:%02d %s EST",
		day, daySuffix(day), t.Month().String(), t.Year(), hour, t.Minute(), ampm)
}

func daySuffix(day int) string {
	if day > 3 && day < 21 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
