// Package eligibility derives the maximum loan term from applicant age and
// marital status. Pure policy, no I/O.
package eligibility

import (
	"errors"
	"fmt"
	"time"
)

// MaritalStatus tags the applicant household composition.
type MaritalStatus string

const (
	Single  MaritalStatus = "single"
	Married MaritalStatus = "married"
)

// DateFormat is the expected birthdate layout (day/month/year).
const DateFormat = "02/01/2006"

const (
	maxAge       = 75
	minTermYears = 5
)

var (
	// ErrInvalidStatus signals an unknown marital-status tag.
	ErrInvalidStatus = errors.New("marital status must be single or married")
	// ErrBirthdateCount signals the wrong number of birthdates for the
	// declared status.
	ErrBirthdateCount = errors.New("married applicants require exactly two birthdates, single exactly one")
	// ErrInvalidBirthdate signals a birthdate that does not parse.
	ErrInvalidBirthdate = errors.New("birthdate must be in day/month/year format")
	// ErrOverAgeLimit signals an applicant older than the lending limit.
	ErrOverAgeLimit = errors.New("applicant exceeds the maximum lending age")
	// ErrTermTooShort signals a derived term under the minimum loan period.
	ErrTermTooShort = errors.New("maximum loan term is below the minimum loan period")
)

// Age returns whole years lived at now; a birthday not yet reached this year
// counts as one year younger.
func Age(now, birthdate time.Time) int {
	age := now.Year() - birthdate.Year()
	if now.Month() < birthdate.Month() ||
		(now.Month() == birthdate.Month() && now.Day() < birthdate.Day()) {
		age--
	}
	return age
}

// MaxTermMonths computes the maximum allowable loan term in months for the
// applicant(s). The banded policy uses the oldest applicant:
// up to 30 years old -> 40y, 31-35 -> 37y, 36-39 -> 35y, 40+ -> 75-age years.
func MaxTermMonths(now time.Time, status MaritalStatus, birthdates ...string) (int, error) {
	switch status {
	case Single:
		if len(birthdates) != 1 {
			return 0, ErrBirthdateCount
		}
	case Married:
		if len(birthdates) != 2 {
			return 0, ErrBirthdateCount
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	age := 0
	for _, b := range birthdates {
		parsed, err := time.Parse(DateFormat, b)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidBirthdate, b)
		}
		if a := Age(now, parsed); a > age {
			age = a
		}
	}

	if age > maxAge {
		return 0, ErrOverAgeLimit
	}

	var years int
	switch {
	case age <= 30:
		years = 40
	case age <= 35:
		years = 37
	case age < 40:
		years = 35
	default:
		years = maxAge - age
	}

	if years < minTermYears {
		return 0, ErrTermTooShort
	}

	return years * 12, nil
}
