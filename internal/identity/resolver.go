// Package identity maps authenticated principals onto the domain participant
// ids used inside conversation rows. A user's authorization is keyed on the
// resolved patient/doctor profile id, not the raw user id.
package identity

import (
	"errors"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"gorm.io/gorm"
)

// Kind tags what a principal resolves to.
type Kind string

const (
	KindPatient Kind = "patient"
	KindDoctor  Kind = "doctor"
	KindNone    Kind = "none"
)

// Ref is the resolved participant reference. DomainID is nil both for
// unrestricted roles and for patient/doctor users with no profile row yet;
// the caller decides what a missing profile means per operation.
type Ref struct {
	Kind     Kind
	DomainID *int64
}

// Participant converts the reference into the model-level tagged variant.
func (r Ref) Participant() model.Participant {
	switch r.Kind {
	case KindPatient:
		return model.Participant{Kind: model.ParticipantPatient, DomainID: r.DomainID}
	case KindDoctor:
		return model.Participant{Kind: model.ParticipantDoctor, DomainID: r.DomainID}
	}
	return model.Participant{Kind: model.ParticipantUnrestricted}
}

// Directory is the profile lookup surface the resolver depends on.
type Directory interface {
	FindPatientByUserID(userID int64) (*model.Patient, error)
	FindDoctorByUserID(userID int64) (*model.Doctor, error)
}

// Resolver resolves (user id, role) pairs against the profile directory.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve maps a principal to its participant reference. A missing profile is
// not an error: patient/doctor users can exist in the user table before their
// profile row is created, and such principals resolve with a nil DomainID.
func (r *Resolver) Resolve(userID int64, role model.Role) (Ref, error) {
	switch role {
	case model.RolePatient:
		p, err := r.dir.FindPatientByUserID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Ref{Kind: KindPatient}, nil
			}
			return Ref{}, err
		}
		return Ref{Kind: KindPatient, DomainID: &p.ID}, nil

	case model.RoleDoctor:
		d, err := r.dir.FindDoctorByUserID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Ref{Kind: KindDoctor}, nil
			}
			return Ref{}, err
		}
		return Ref{Kind: KindDoctor, DomainID: &d.ID}, nil
	}

	// admin, staff, and anything else the token layer let through: no domain
	// profile, never occupies a participant column.
	return Ref{Kind: KindNone}, nil
}
