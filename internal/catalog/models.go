// Package catalog holds the conference-wide master list of classes and
// honors. Catalog items carry the requirement rows that the eligibility
// engine evaluates when a member enrolls in an offering of the item.
package catalog

import (
	"cmms/internal/eligibility"
	id "cmms/pkg/domain"
)

// ClassType distinguishes honors (signed off into the member's record on
// completion) from plain classes.
type ClassType string

const (
	TypeHonor ClassType = "HONOR"
	TypeClass ClassType = "CLASS"
)

func (t ClassType) IsValid() bool {
	return t == TypeHonor || t == TypeClass
}

// Item is one catalog entry. Code is uppercased and unique; for honors it is
// the honor code written into member records at sign-off, which is why
// requirement matching on completed honors must normalize case.
type Item struct {
	ID           id.CatalogID
	Code         string
	Title        string
	Description  *string
	ClassType    ClassType
	Active       bool
	Requirements []eligibility.Requirement
}
