// Package policy holds the conversation rules engine: a pure function over
// role pairs with no I/O. It decides whether a pairing may converse and how
// the resulting conversation is classified; identity lookup belongs to the
// caller.
package policy

import (
	"github.com/Dave-code-creater/chiropractor-sub000/internal/apierr"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
)

// Pairing classifies an allowed role combination. It becomes the
// conversation's participant_type tag.
type Pairing string

const (
	PairingPatientDoctor Pairing = "patient-doctor"
	PairingPatientStaff  Pairing = "patient-staff"
	PairingDoctorDoctor  Pairing = "doctor-doctor"
	PairingDoctorStaff   Pairing = "doctor-staff"

	// PairingUnrestricted is the named path for combinations with no domain
	// participant on either side (admin-admin, staff-staff, admin-staff).
	// These are allowed with both participant columns null; callers log a
	// warning so the volume of such conversations stays visible.
	PairingUnrestricted Pairing = "unrestricted"
)

// Decision is the outcome of the rules matrix for one (current, target) pair.
type Decision struct {
	Allowed    bool
	Pairing    Pairing
	ReasonCode int
	Reason     string
}

// Decide applies the role matrix:
//
//	current\target  patient  doctor  staff
//	patient         deny     allow   allow
//	doctor          allow    allow   allow
//	staff           allow    allow   allow
//
// admin and staff collapse to "staff" for matrix purposes. Patient-to-patient
// is the only denied pair, with its own reason code.
func Decide(current, target model.Role) Decision {
	if current == model.RolePatient && target == model.RolePatient {
		return Decision{
			Allowed:    false,
			ReasonCode: apierr.CodePatientToPatient,
			Reason:     "patients cannot open conversations with other patients",
		}
	}

	switch {
	case pairOf(current, target, model.RolePatient, model.RoleDoctor):
		return Decision{Allowed: true, Pairing: PairingPatientDoctor}
	case current == model.RolePatient && target.Unrestricted(),
		target == model.RolePatient && current.Unrestricted():
		return Decision{Allowed: true, Pairing: PairingPatientStaff}
	case current == model.RoleDoctor && target == model.RoleDoctor:
		return Decision{Allowed: true, Pairing: PairingDoctorDoctor}
	case current == model.RoleDoctor && target.Unrestricted(),
		target == model.RoleDoctor && current.Unrestricted():
		return Decision{Allowed: true, Pairing: PairingDoctorStaff}
	}

	// Both sides unrestricted (or an unknown role slipped through the token
	// layer). Allowed, but as a distinct pairing the caller must warn on.
	return Decision{Allowed: true, Pairing: PairingUnrestricted}
}

func pairOf(a, b, want1, want2 model.Role) bool {
	return (a == want1 && b == want2) || (a == want2 && b == want1)
}
