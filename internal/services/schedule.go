package services

import "time"

const windowDateLayout = "2006-01-02"

// AvailableWindows returns the delivery windows offered to a caller at now:
// tomorrow morning, tomorrow afternoon, and the morning of the next Saturday
// strictly after today (a Saturday yields the Saturday a week later).
//
// Windows are display labels handed back to the voice agent verbatim.
func AvailableWindows(now time.Time) []string {
	tomorrow := now.AddDate(0, 0, 1).Format(windowDateLayout)

	daysAhead := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	saturday := now.AddDate(0, 0, daysAhead).Format(windowDateLayout)

	return []string{
		tomorrow + " Morning",
		tomorrow + " Afternoon",
		saturday + " Morning",
	}
}
