package report

import (
	"sort"
	"strings"

	"cmms/internal/registration"
)

// Reserved form field keys the operational reports aggregate. Events that
// want these reports include fields with exactly these keys.
var (
	spiritualKeys = map[string]struct{}{"baptism_names": {}, "bible_names": {}}
	dutyKeys      = map[string]struct{}{"duty_first": {}, "duty_second": {}, "special_activity": {}}
	avDetailKeys  = map[string]struct{}{"av_equipment": {}, "av_request": {}, "av_needs": {}}
)

// ClubRef identifies a club on a report row.
type ClubRef struct {
	Name string
	Code string
}

// KeyedResponse is one registration-scoped answer with its field identity.
type KeyedResponse struct {
	Key   string
	Label string
	Value registration.Value
}

// ClubResponses is one club registration's answers, the input to the
// operational aggregation.
type ClubResponses struct {
	RegistrationID string
	Club           ClubRef
	Responses      []KeyedResponse
}

// SpiritualRow is one name submitted for baptism or bible study.
type SpiritualRow struct {
	Club        ClubRef
	SourceKey   string
	SourceLabel string
	Response    string
}

// DutyRow groups the clubs that picked one duty assignment.
type DutyRow struct {
	Assignment string
	Clubs      []ClubRef
}

// AVRow is one club's audio/visual support request.
type AVRow struct {
	Club           ClubRef
	RequestedItems string
}

// Operational is the three-part operational report for one event.
type Operational struct {
	Spiritual []SpiritualRow
	Duty      []DutyRow
	AV        []AVRow
}

// BuildOperational aggregates registration-scoped answers into the
// operational report. A club lands on the AV report when any av_* answer is
// truthy or carries detail text; duty assignments are matched
// case-insensitively but displayed as first entered.
func BuildOperational(registrations []ClubResponses) Operational {
	var out Operational
	type dutyEntry struct {
		assignment string
		clubs      map[string]ClubRef
	}
	dutyMap := make(map[string]*dutyEntry)

	for _, reg := range registrations {
		avDetails := make([]string, 0)
		avSeen := make(map[string]struct{})
		avRequested := false

		for _, response := range reg.Responses {
			items := FlattenValue(response.Value)

			if _, ok := spiritualKeys[response.Key]; ok {
				for _, item := range items {
					out.Spiritual = append(out.Spiritual, SpiritualRow{
						Club:        reg.Club,
						SourceKey:   response.Key,
						SourceLabel: response.Label,
						Response:    item,
					})
				}
			}

			if _, ok := dutyKeys[response.Key]; ok {
				for _, item := range items {
					assignmentKey := strings.ToLower(item)
					entry := dutyMap[assignmentKey]
					if entry == nil {
						entry = &dutyEntry{assignment: item, clubs: make(map[string]ClubRef)}
						dutyMap[assignmentKey] = entry
					}
					entry.clubs[reg.RegistrationID] = reg.Club
				}
			}

			_, isAVDetail := avDetailKeys[response.Key]
			if strings.HasPrefix(response.Key, "av_") || isAVDetail {
				if response.Value.Truthy() {
					avRequested = true
				}
				for _, item := range items {
					detail := response.Label + ": " + item
					if _, dup := avSeen[detail]; !dup {
						avSeen[detail] = struct{}{}
						avDetails = append(avDetails, detail)
					}
				}
			}
		}

		if avRequested || len(avDetails) > 0 {
			requested := "Requested AV support"
			if len(avDetails) > 0 {
				requested = strings.Join(avDetails, "; ")
			}
			out.AV = append(out.AV, AVRow{Club: reg.Club, RequestedItems: requested})
		}
	}

	for _, entry := range dutyMap {
		clubs := make([]ClubRef, 0, len(entry.clubs))
		for _, club := range entry.clubs {
			clubs = append(clubs, club)
		}
		sort.Slice(clubs, func(i, j int) bool { return clubs[i].Name < clubs[j].Name })
		out.Duty = append(out.Duty, DutyRow{Assignment: entry.assignment, Clubs: clubs})
	}
	sort.Slice(out.Duty, func(i, j int) bool { return out.Duty[i].Assignment < out.Duty[j].Assignment })

	sort.Slice(out.Spiritual, func(i, j int) bool {
		if out.Spiritual[i].Club.Name != out.Spiritual[j].Club.Name {
			return out.Spiritual[i].Club.Name < out.Spiritual[j].Club.Name
		}
		return out.Spiritual[i].Response < out.Spiritual[j].Response
	})
	sort.Slice(out.AV, func(i, j int) bool { return out.AV[i].Club.Name < out.AV[j].Club.Name })

	return out
}
