package domain

import (
	"fmt"
	"time"
)

// ApplicationStatus values are stored verbatim in applications.status.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
	ApplicationPickedUp ApplicationStatus = "PICKED_UP"
)

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected, ApplicationPickedUp:
		return true
	}
	return false
}

// CanTransitionTo encodes PENDING -> {APPROVED, REJECTED}, APPROVED -> PICKED_UP.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	switch s {
	case ApplicationPending:
		return next == ApplicationApproved || next == ApplicationRejected
	case ApplicationApproved:
		return next == ApplicationPickedUp
	}
	return false
}

// Label is the human-readable status shown to applicants.
func (s ApplicationStatus) Label() string {
	switch s {
	case ApplicationPending:
		return "Pending Review"
	case ApplicationApproved:
		return "Approved"
	case ApplicationRejected:
		return "Rejected"
	case ApplicationPickedUp:
		return "Picked Up"
	}
	return string(s)
}

// Application maps to the applications table.
type Application struct {
	ID              string `db:"id"`
	ReferenceNumber string `db:"reference_number"`

	// applicant
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Phone     string `db:"phone"` // canonical 0XXXXXXXXXX
	Email     string `db:"email"`
	Address   string `db:"address"`

	// family
	FamilySize       int    `db:"family_size"`
	ChildrenCount    int    `db:"children_count"`
	ElderlyCount     int    `db:"elderly_count"`
	EmploymentStatus string `db:"employment_status"`
	SpecialNeeds     string `db:"special_needs"`
	ChurchMember     string `db:"church_member"` // yes / no

	// package
	SelectedPackage    PackageType `db:"selected_package"`
	PackageFlexibility bool        `db:"package_flexibility"`

	// schedule
	PreferredDate      time.Time  `db:"preferred_date"`
	PreferredTime      string     `db:"preferred_time"`
	AlternativeDate    *time.Time `db:"alternative_date"`
	AlternativeTime    string     `db:"alternative_time"`
	TransportationHelp bool       `db:"transportation_help"`
	DeliveryRequest    bool       `db:"delivery_request"`

	TermsAgreement bool `db:"terms_agreement"`

	Status      ApplicationStatus `db:"status"`
	ReviewedBy  string            `db:"reviewed_by"`
	ReviewedAt  *time.Time        `db:"reviewed_at"`
	ReviewNotes string            `db:"review_notes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FullName is "First Last".
func (a *Application) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Review is the staff decision stamped on an application leaving PENDING.
type Review struct {
	Reviewer string
	Notes    string
	At       time.Time
}

// Approve moves a PENDING application to APPROVED and stamps the review.
func (a *Application) Approve(r Review) error {
	return a.decide(ApplicationApproved, r)
}

// Reject moves a PENDING application to REJECTED and stamps the review.
func (a *Application) Reject(r Review) error {
	return a.decide(ApplicationRejected, r)
}

func (a *Application) decide(next ApplicationStatus, r Review) error {
	if a.Status != ApplicationPending {
		return fmt.Errorf("%w: only pending applications can be %s (current status %s)",
			ErrInvalidTransition, decisionVerb(next), a.Status)
	}
	at := r.At
	a.Status = next
	a.ReviewedBy = r.Reviewer
	a.ReviewedAt = &at
	a.ReviewNotes = r.Notes
	a.UpdatedAt = at
	return nil
}

// MarkPickedUp is only reached through voucher completion.
func (a *Application) MarkPickedUp(at time.Time) error {
	if !a.Status.CanTransitionTo(ApplicationPickedUp) {
		return fmt.Errorf("%w: application %s is %s, not APPROVED", ErrInvalidTransition, a.ReferenceNumber, a.Status)
	}
	a.Status = ApplicationPickedUp
	a.UpdatedAt = at
	return nil
}

func decisionVerb(s ApplicationStatus) string {
	if s == ApplicationApproved {
		return "approved"
	}
	return "rejected"
}
