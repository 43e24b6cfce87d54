package applescript

import (
	"fmt"
	"strings"
	"time"

	"orgcal/internal/model"
)

const separators = `set RS to character id 30
set US to character id 31
set output to ""
`

// calendarsScript lists "id US name RS" for every calendar named in names.
func calendarsScript(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, `"`+escapeString(n)+`"`)
	}

	return separators + fmt.Sprintf(`set wanted to {%s}
tell application "Calendar"
	repeat with c in calendars
		set calName to name of c
		if wanted contains calName then
			set output to output & (calendarIdentifier of c) & US & calName & RS
		end if
	end repeat
end tell
return output`, strings.Join(quoted, ", "))
}

// eventsScript lists "title US start US end RS" for events of calendar id
// starting in [start, endExclusive).
func eventsScript(id string, start, endExclusive model.Date) string {
	return separators + fmt.Sprintf(`set startD to my mkdate(%d, %d, %d)
set endD to my mkdate(%d, %d, %d)
tell application "Calendar"
	set theCal to first calendar whose calendarIdentifier is "%s"
	set evs to (every event of theCal whose start date is greater than or equal to startD and start date is less than endD)
	repeat with e in evs
		set t to summary of e
		if t is missing value then set t to ""
		set output to output & t & US & my stamp(start date of e) & US & my stamp(end date of e) & RS
	end repeat
end tell
return output

on mkdate(y, m, d)
	set dt to current date
	set day of dt to 1
	set year of dt to y
	set month of dt to m
	set day of dt to d
	set time of dt to 0
	return dt
end mkdate

on stamp(dt)
	return ((year of dt) as text) & "-" & ((month of dt as integer) as text) & "-" & ((day of dt) as text) & " " & ((hours of dt) as text) & ":" & ((minutes of dt) as text)
end stamp`,
		start.Year, int(start.Month), start.Day,
		endExclusive.Year, int(endExclusive.Month), endExclusive.Day,
		escapeString(id))
}

func monthOf(m int) time.Month {
	return time.Month(m)
}
