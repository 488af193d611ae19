package policy

import (
	"testing"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/apierr"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDecide_FullMatrix(t *testing.T) {
	roles := []model.Role{model.RolePatient, model.RoleDoctor, model.RoleAdmin, model.RoleStaff}

	for _, current := range roles {
		for _, target := range roles {
			d := Decide(current, target)
			if current == model.RolePatient && target == model.RolePatient {
				assert.False(t, d.Allowed, "patient->patient must deny")
				continue
			}
			assert.True(t, d.Allowed, "%s->%s must allow", current, target)
			assert.NotEmpty(t, d.Pairing, "%s->%s must carry a pairing", current, target)
		}
	}
}

func TestDecide_PatientToPatientReasonCode(t *testing.T) {
	d := Decide(model.RolePatient, model.RolePatient)
	assert.False(t, d.Allowed)
	assert.Equal(t, apierr.CodePatientToPatient, d.ReasonCode)
	assert.NotEmpty(t, d.Reason)
}

func TestDecide_Pairings(t *testing.T) {
	tests := []struct {
		current, target model.Role
		want            Pairing
	}{
		{model.RolePatient, model.RoleDoctor, PairingPatientDoctor},
		{model.RoleDoctor, model.RolePatient, PairingPatientDoctor},
		{model.RolePatient, model.RoleAdmin, PairingPatientStaff},
		{model.RoleStaff, model.RolePatient, PairingPatientStaff},
		{model.RoleDoctor, model.RoleDoctor, PairingDoctorDoctor},
		{model.RoleDoctor, model.RoleStaff, PairingDoctorStaff},
		{model.RoleAdmin, model.RoleDoctor, PairingDoctorStaff},
	}
	for _, tt := range tests {
		d := Decide(tt.current, tt.target)
		assert.True(t, d.Allowed)
		assert.Equal(t, tt.want, d.Pairing, "%s->%s", tt.current, tt.target)
	}
}

// Admin-admin and staff-staff pairs have no domain participant on either
// side. They stay allowed, but as the named unrestricted pairing the service
// logs a warning for.
func TestDecide_UnrestrictedPairsAreNamedNotFallthrough(t *testing.T) {
	pairs := [][2]model.Role{
		{model.RoleAdmin, model.RoleAdmin},
		{model.RoleStaff, model.RoleStaff},
		{model.RoleAdmin, model.RoleStaff},
		{model.RoleStaff, model.RoleAdmin},
	}
	for _, p := range pairs {
		d := Decide(p[0], p[1])
		assert.True(t, d.Allowed, "%s->%s", p[0], p[1])
		assert.Equal(t, PairingUnrestricted, d.Pairing, "%s->%s", p[0], p[1])
	}
}
