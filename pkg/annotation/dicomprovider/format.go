package dicomprovider

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatDate turns a DA value (YYYYMMDD) into YYYY-MM-DD. Anything that is
// not exactly 8 characters after trimming is dropped.
func FormatDate(date string) string {
	date = strings.TrimRight(date, " \t\r\n\x00")
	if len(date) != 8 {
		return ""
	}
	return date[:4] + "-" + date[4:6] + "-" + date[6:]
}

// FormatTime turns a TM value (HHMMSS[.F]) into "H:MM:SS AM|PM".
// Hours above 12 become PM; 0 and 12 are left as they are with AM.
func FormatTime(tm string) string {
	tm = strings.TrimSpace(tm)
	if len(tm) < 6 {
		return ""
	}
	for _, c := range tm[:6] {
		if c < '0' || c > '9' {
			return ""
		}
	}
	hour, err := strconv.Atoi(tm[:2])
	if err != nil {
		return ""
	}
	clock := "AM"
	if hour > 12 {
		hour -= 12
		clock = "PM"
	}
	return fmt.Sprintf("%d:%s:%s %s", hour, tm[2:4], tm[4:6], clock)
}

// FormatPersonName renders PN components separated by ", "
func FormatPersonName(pn string) string {
	return strings.ReplaceAll(pn, "^", ", ")
}

// PatientInfoOf joins name, birth date and "age sex", skipping empty parts
func PatientInfoOf(r TagRecord) string {
	var parts []string
	if name := FormatPersonName(r.PatientName); name != "" {
		parts = append(parts, name)
	}
	if bd := FormatDate(r.PatientBirthDate); bd != "" {
		parts = append(parts, bd)
	}
	var ageSex []string
	for _, s := range []string{strings.TrimSpace(r.PatientAge), strings.TrimSpace(r.PatientSex)} {
		if s != "" {
			ageSex = append(ageSex, s)
		}
	}
	if len(ageSex) > 0 {
		parts = append(parts, strings.Join(ageSex, " "))
	}
	return strings.Join(parts, ", ")
}
