// Package notify handles post-commit notifications. Registration receipts are
// published to a Kafka topic after the registration transaction commits; a
// worker consumes the topic and delivers the receipt email. Delivery is
// fire-and-forget: a failed publish or send is logged and counted, never
// surfaced to the registration flow.
package notify

import "time"

// RegistrationSubmitted is the event published when a club submits its
// registration.
type RegistrationSubmitted struct {
	RegistrationID   string    `json:"registrationId"`
	RegistrationCode string    `json:"registrationCode"`
	EventName        string    `json:"eventName"`
	ClubName         string    `json:"clubName"`
	AttendeeCount    int       `json:"attendeeCount"`
	RecipientEmail   string    `json:"recipientEmail"`
	SubmittedAt      time.Time `json:"submittedAt"`
}
