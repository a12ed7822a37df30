package lifecycle

import (
	"sort"
	"strings"
	"time"

	"dentalflow/internal/model"
)

// DateLayout is the dd/MM/yyyy form appointment dates are stored in.
const DateLayout = "02/01/2006"

// Present filters list by a case-insensitive match on patient name and sorts
// the result by date, oldest first. Unparsable dates come first. list is not
// modified.
func Present(list []model.Appointment, query string) []model.Appointment {
	q := strings.ToLower(query)
	out := make([]model.Appointment, 0, len(list))
	for _, a := range list {
		if strings.Contains(strings.ToLower(a.PatientName), q) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i].Date).Before(sortKey(out[j].Date))
	})
	return out
}

func sortKey(date string) time.Time {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}
	}
	return t
}
