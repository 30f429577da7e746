// Package service assembles the super admin report data: it loads an event's
// registrations and answers from the stores, shapes them for the pure
// builders in the report package, and names the CSV downloads.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"cmms/internal/event"
	"cmms/internal/registration"
	"cmms/internal/report"
	"cmms/internal/roster"
	id "cmms/pkg/domain"
	dErrors "cmms/pkg/domain-errors"
	"cmms/pkg/platform/sentinel"
)

type EventSource interface {
	GetEvent(ctx context.Context, eventID id.EventID) (event.Event, error)
	ListFields(ctx context.Context, eventID id.EventID) ([]event.FormField, error)
}

type RegistrationStore interface {
	ListByEvent(ctx context.Context, eventID id.EventID) ([]registration.Registration, error)
	ListAttendees(ctx context.Context, regID id.RegistrationID) ([]registration.Attendee, error)
	ListResponses(ctx context.Context, regID id.RegistrationID) ([]registration.FormResponse, error)
}

type RosterSource interface {
	GetClub(ctx context.Context, clubID id.ClubID) (roster.Club, error)
	GetMember(ctx context.Context, memberID id.RosterMemberID) (roster.Member, error)
}

// Service builds the operational, medical, and master attendee reports.
type Service struct {
	events        EventSource
	registrations RegistrationStore
	rosters       RosterSource
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(events EventSource, registrations RegistrationStore, rosters RosterSource, opts ...Option) *Service {
	s := &Service{
		events:        events,
		registrations: registrations,
		rosters:       rosters,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CSVFile is a named CSV download.
type CSVFile struct {
	Name    string
	Content string
}

// OperationalReport is the aggregated report plus the event it covers.
type OperationalReport struct {
	Event       event.Event
	Operational report.Operational
}

// Operational aggregates every submitted or approved registration's
// registration-scoped answers into the spiritual, duty, and AV reports.
func (s *Service) Operational(ctx context.Context, eventID id.EventID) (OperationalReport, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return OperationalReport{}, err
	}

	fields, err := s.events.ListFields(ctx, eventID)
	if err != nil {
		return OperationalReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list form fields")
	}
	fieldByID := make(map[id.FieldID]event.FormField, len(fields))
	for _, f := range fields {
		fieldByID[f.ID] = f
	}

	regs, err := s.submittedRegistrations(ctx, eventID)
	if err != nil {
		return OperationalReport{}, err
	}

	clubResponses := make([]report.ClubResponses, 0, len(regs))
	for _, reg := range regs {
		club, err := s.rosters.GetClub(ctx, reg.ClubID)
		if err != nil {
			return OperationalReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club")
		}
		responses, err := s.registrations.ListResponses(ctx, reg.ID)
		if err != nil {
			return OperationalReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list responses")
		}

		keyed := make([]report.KeyedResponse, 0, len(responses))
		for _, response := range responses {
			// attendee-scoped answers belong to individuals, not the club
			if response.AttendeeID != nil {
				continue
			}
			field, ok := fieldByID[response.FieldID]
			if !ok {
				continue
			}
			keyed = append(keyed, report.KeyedResponse{
				Key:   field.Key,
				Label: field.Label,
				Value: response.Value,
			})
		}
		clubResponses = append(clubResponses, report.ClubResponses{
			RegistrationID: reg.ID.String(),
			Club:           report.ClubRef{Name: club.Name, Code: club.Code},
			Responses:      keyed,
		})
	}

	return OperationalReport{Event: ev, Operational: report.BuildOperational(clubResponses)}, nil
}

// SpiritualCSV renders the baptism and bible study name list as a download.
func (s *Service) SpiritualCSV(ctx context.Context, eventID id.EventID) (CSVFile, error) {
	rep, err := s.Operational(ctx, eventID)
	if err != nil {
		return CSVFile{}, err
	}
	return CSVFile{
		Name:    operationalFileName(rep.Event, "spiritual"),
		Content: report.SpiritualCSV(rep.Operational.Spiritual),
	}, nil
}

// DutyCSV renders the duty assignment report as a download.
func (s *Service) DutyCSV(ctx context.Context, eventID id.EventID) (CSVFile, error) {
	rep, err := s.Operational(ctx, eventID)
	if err != nil {
		return CSVFile{}, err
	}
	return CSVFile{
		Name:    operationalFileName(rep.Event, "duties"),
		Content: report.DutyCSV(rep.Operational.Duty),
	}, nil
}

// AVCSV renders the audio/visual request report as a download.
func (s *Service) AVCSV(ctx context.Context, eventID id.EventID) (CSVFile, error) {
	rep, err := s.Operational(ctx, eventID)
	if err != nil {
		return CSVFile{}, err
	}
	return CSVFile{
		Name:    operationalFileName(rep.Event, "av"),
		Content: report.AVCSV(rep.Operational.AV),
	}, nil
}

// MedicalReport is the manifest plus the event it covers.
type MedicalReport struct {
	Event    event.Event
	Manifest report.Manifest
}

// MedicalManifest lists every attendee with a dietary restriction or medical
// flag across the event's submitted and approved registrations, ordered by
// last then first name.
func (s *Service) MedicalManifest(ctx context.Context, eventID id.EventID) (MedicalReport, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return MedicalReport{}, err
	}

	regs, err := s.submittedRegistrations(ctx, eventID)
	if err != nil {
		return MedicalReport{}, err
	}

	type memberRow struct {
		member   roster.Member
		clubName string
	}
	var members []memberRow
	for _, reg := range regs {
		club, err := s.rosters.GetClub(ctx, reg.ClubID)
		if err != nil {
			return MedicalReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club")
		}
		attendees, err := s.registrations.ListAttendees(ctx, reg.ID)
		if err != nil {
			return MedicalReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendees")
		}
		for _, attendee := range attendees {
			member, err := s.rosters.GetMember(ctx, attendee.RosterMemberID)
			if err != nil {
				return MedicalReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster member")
			}
			members = append(members, memberRow{member: member, clubName: club.Name})
		}
	}

	sort.Slice(members, func(i, j int) bool {
		if members[i].member.LastName != members[j].member.LastName {
			return members[i].member.LastName < members[j].member.LastName
		}
		return members[i].member.FirstName < members[j].member.FirstName
	})

	now := s.now().UTC()
	rows := make([]report.MedicalRow, 0, len(members))
	for _, row := range members {
		rows = append(rows, report.MedicalRow{
			AttendeeName:        row.member.FullName(),
			Age:                 report.FormatAge(row.member.DateOfBirth, row.member.AgeAtStart, now),
			Role:                row.member.MemberRole,
			ClubName:            row.clubName,
			EmergencyContact:    report.FormatEmergencyContact(row.member.EmergencyContactName, row.member.EmergencyContactPhone),
			DietaryRestrictions: row.member.DietaryRestrictions,
			MedicalFlags:        row.member.MedicalFlags,
		})
	}

	return MedicalReport{Event: ev, Manifest: report.BuildManifest(rows)}, nil
}

// MasterAttendeesCSV renders every attendee across all of the event's
// registrations, whatever their status, as a download for the front gate.
func (s *Service) MasterAttendeesCSV(ctx context.Context, eventID id.EventID) (CSVFile, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return CSVFile{}, err
	}

	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return CSVFile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}

	records := [][]string{{
		"Event", "Registration Code", "Registration Status",
		"Club", "Club Code", "Attendee", "Member Role", "Age At Start",
	}}
	for _, reg := range regs {
		club, err := s.rosters.GetClub(ctx, reg.ClubID)
		if err != nil {
			return CSVFile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club")
		}
		attendees, err := s.registrations.ListAttendees(ctx, reg.ID)
		if err != nil {
			return CSVFile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendees")
		}
		for _, attendee := range attendees {
			member, err := s.rosters.GetMember(ctx, attendee.RosterMemberID)
			if err != nil {
				return CSVFile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load roster member")
			}
			age := ""
			if member.AgeAtStart != nil {
				age = strconv.Itoa(*member.AgeAtStart)
			}
			records = append(records, []string{
				ev.Name,
				reg.RegistrationCode,
				string(reg.Status),
				club.Name,
				club.Code,
				member.FullName(),
				string(member.MemberRole),
				age,
			})
		}
	}

	return CSVFile{
		Name:    ev.Slug + "-master-attendees.csv",
		Content: report.ToCSV(records),
	}, nil
}

func (s *Service) loadEvent(ctx context.Context, eventID id.EventID) (event.Event, error) {
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return event.Event{}, dErrors.New(dErrors.CodeNotFound, "Event was not found.")
		}
		return event.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return ev, nil
}

func (s *Service) submittedRegistrations(ctx context.Context, eventID id.EventID) ([]registration.Registration, error) {
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	out := make([]registration.Registration, 0, len(regs))
	for _, reg := range regs {
		if reg.Status == registration.StatusSubmitted || reg.Status == registration.StatusApproved {
			out = append(out, reg)
		}
	}
	return out, nil
}

func operationalFileName(ev event.Event, kind string) string {
	name := strings.ToLower(strings.Join(strings.Fields(ev.Name), "-"))
	dates := ev.StartsAt.Format("2006-01-02") + "-" + ev.EndsAt.Format("2006-01-02")
	return name + "-" + kind + "-" + dates + ".csv"
}
