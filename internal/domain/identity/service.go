package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediscribe/mediscribe/internal/domain/account"
	"github.com/mediscribe/mediscribe/internal/platform/apperr"
)

// TxRunner runs fn atomically. Production wires db.WithTx; tests pass a
// passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
	users    account.Repository
	tx       TxRunner
}

func NewService(patients PatientRepository, doctors DoctorRepository, users account.Repository, tx TxRunner) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{patients: patients, doctors: doctors, users: users, tx: tx}
}

// CreatePatient creates the patient's login account and their patient record
// in one transaction; a failure in either leaves no partial rows behind.
func (s *Service) CreatePatient(ctx context.Context, intake PatientIntake) (*Patient, error) {
	if err := validateIntake(intake.Email, intake.Password, intake.FirstName, intake.LastName); err != nil {
		return nil, err
	}

	dob := DefaultDateOfBirth
	if intake.DateOfBirth != "" {
		parsed, err := time.Parse("2006-01-02", intake.DateOfBirth)
		if err != nil {
			return nil, apperr.Validation("invalid date_of_birth, expected YYYY-MM-DD")
		}
		dob = parsed
	}

	var p *Patient
	err := s.tx(ctx, func(ctx context.Context) error {
		u := &account.User{
			Email:    strings.ToLower(strings.TrimSpace(intake.Email)),
			Password: intake.Password,
			Role:     "patient",
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}

		p = &Patient{
			UserID:      u.ID,
			FirstName:   strings.TrimSpace(intake.FirstName),
			LastName:    strings.TrimSpace(intake.LastName),
			DateOfBirth: dob,
			Gender:      intake.Gender,
			Phone:       intake.Phone,
			Address:     intake.Address,
			DoctorID:    intake.DoctorID,
		}
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateDoctor creates the doctor's login account and their doctor record in
// one transaction.
func (s *Service) CreateDoctor(ctx context.Context, intake DoctorIntake) (*Doctor, error) {
	if err := validateIntake(intake.Email, intake.Password, intake.FirstName, intake.LastName); err != nil {
		return nil, err
	}

	var d *Doctor
	err := s.tx(ctx, func(ctx context.Context) error {
		u := &account.User{
			Email:    strings.ToLower(strings.TrimSpace(intake.Email)),
			Password: intake.Password,
			Role:     "doctor",
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}

		d = &Doctor{
			UserID:         u.ID,
			FirstName:      strings.TrimSpace(intake.FirstName),
			LastName:       strings.TrimSpace(intake.LastName),
			Specialization: intake.Specialization,
			Phone:          intake.Phone,
		}
		return s.doctors.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return apperr.Validation("first_name and last_name are required")
	}
	if _, err := s.patients.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

// DeletePatient removes the patient and their login account together.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.patients.Delete(ctx, id); err != nil {
			return err
		}
		return s.users.Delete(ctx, p.UserID)
	})
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return apperr.Validation("first_name and last_name are required")
	}
	if _, err := s.doctors.GetByID(ctx, d.ID); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

// DeleteDoctor removes the doctor and their login account together.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.doctors.Delete(ctx, id); err != nil {
			return err
		}
		return s.users.Delete(ctx, d.UserID)
	})
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func validateIntake(email, password, firstName, lastName string) error {
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if password == "" {
		return apperr.Validation("password is required")
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return apperr.Validation("first_name and last_name are required")
	}
	return nil
}
