package main

import (
	"errors"
	"log"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/config"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Seeds a development directory: admin, staff, two doctors with profiles,
// two patients with profiles, and one patient deliberately left without a
// profile row to exercise the tolerant identity resolver.
func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	password := "password123"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	type seedUser struct {
		email     string
		first     string
		last      string
		role      model.Role
		profile   bool
		specialty string
	}

	seeds := []seedUser{
		{email: "admin@clinic.local", first: "Ana", last: "Admin", role: model.RoleAdmin},
		{email: "frontdesk@clinic.local", first: "Sam", last: "Staff", role: model.RoleStaff},
		{email: "dr.spine@clinic.local", first: "Dana", last: "Spine", role: model.RoleDoctor, profile: true, specialty: "Chiropractic"},
		{email: "dr.back@clinic.local", first: "Bo", last: "Back", role: model.RoleDoctor, profile: true, specialty: "Physiotherapy"},
		{email: "pat.one@clinic.local", first: "Pat", last: "One", role: model.RolePatient, profile: true},
		{email: "pat.two@clinic.local", first: "Pat", last: "Two", role: model.RolePatient, profile: true},
		// No profile row on purpose: resolver must tolerate it.
		{email: "pat.new@clinic.local", first: "Pat", last: "New", role: model.RolePatient},
	}

	for _, s := range seeds {
		var user model.User
		err := db.Where("email = ?", s.email).First(&user).Error
		if err == nil {
			log.Printf("⏭️  User exists: %s", s.email)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("❌ Lookup failed for %s: %v", s.email, err)
		}

		user = model.User{
			Email:        s.email,
			PasswordHash: string(hash),
			FirstName:    s.first,
			LastName:     s.last,
			Role:         s.role,
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("❌ Failed to create %s: %v", s.email, err)
		}

		if s.profile {
			switch s.role {
			case model.RoleDoctor:
				doc := model.Doctor{
					UserID:        user.ID,
					Specialty:     s.specialty,
					LicenseNumber: "LIC-" + user.Email[:6],
				}
				if err := db.Create(&doc).Error; err != nil {
					log.Fatalf("❌ Failed to create doctor profile for %s: %v", s.email, err)
				}
			case model.RolePatient:
				dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
				pat := model.Patient{
					UserID:      user.ID,
					DateOfBirth: &dob,
					Phone:       "555-0100",
				}
				if err := db.Create(&pat).Error; err != nil {
					log.Fatalf("❌ Failed to create patient profile for %s: %v", s.email, err)
				}
			}
		}
		log.Printf("🌱 Seeded %s (%s)", s.email, s.role)
	}

	log.Printf("✅ Seeding complete. All accounts use password %q", password)
}
