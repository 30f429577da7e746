package report

import (
	"encoding/csv"
	"strings"
)

// ToCSV renders rows as CSV text. encoding/csv quotes cells only when
// needed, which downstream spreadsheet imports handle fine.
func ToCSV(rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.WriteAll(rows)
	return sb.String()
}

// SpiritualCSV renders the baptism and bible-study name list.
func SpiritualCSV(rows []SpiritualRow) string {
	out := [][]string{{"Club", "Club Code", "Field", "Response"}}
	for _, row := range rows {
		out = append(out, []string{row.Club.Name, row.Club.Code, row.SourceLabel, row.Response})
	}
	return ToCSV(out)
}

// DutyCSV renders one line per (assignment, club) pair.
func DutyCSV(rows []DutyRow) string {
	out := [][]string{{"Assignment", "Club", "Club Code"}}
	for _, row := range rows {
		for _, club := range row.Clubs {
			out = append(out, []string{row.Assignment, club.Name, club.Code})
		}
	}
	return ToCSV(out)
}

// AVCSV renders the audio/visual support requests.
func AVCSV(rows []AVRow) string {
	out := [][]string{{"Club", "Club Code", "Requested Items"}}
	for _, row := range rows {
		out = append(out, []string{row.Club.Name, row.Club.Code, row.RequestedItems})
	}
	return ToCSV(out)
}
