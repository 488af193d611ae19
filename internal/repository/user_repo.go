package repository

import (
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"gorm.io/gorm"
)

// UserRepository handles database operations for users and their
// patient/doctor domain profiles.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by id
func (r *UserRepository) FindByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindPatientByUserID finds the patient profile owned by a user id.
// Returns gorm.ErrRecordNotFound when the user has no profile row yet.
func (r *UserRepository) FindPatientByUserID(userID int64) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.Where("user_id = ?", userID).First(&patient).Error
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// FindDoctorByUserID finds the doctor profile owned by a user id.
func (r *UserRepository) FindDoctorByUserID(userID int64) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.db.Where("user_id = ?", userID).First(&doctor).Error
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

// CreatePatient inserts a patient profile
func (r *UserRepository) CreatePatient(patient *model.Patient) error {
	return r.db.Create(patient).Error
}

// CreateDoctor inserts a doctor profile
func (r *UserRepository) CreateDoctor(doctor *model.Doctor) error {
	return r.db.Create(doctor).Error
}

// DisplayNames resolves full names for a set of user ids in one query.
func (r *UserRepository) DisplayNames(userIDs []int64) (map[int64]string, error) {
	if len(userIDs) == 0 {
		return map[int64]string{}, nil
	}
	var users []model.User
	if err := r.db.Select("id", "first_name", "last_name").
		Where("id IN ?", userIDs).
		Find(&users).Error; err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for i := range users {
		names[users[i].ID] = users[i].FullName()
	}
	return names, nil
}
