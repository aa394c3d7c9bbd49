package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-backoffice/internal/repository"
)

type consultedServiceRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	db *sqlx.DB
}

type paymentVoucherRepository struct {
	BaseRepository
}

type catalogRepository struct {
	db *sqlx.DB
}

func NewConsultedServiceRepository(db *sqlx.DB) repository.ConsultedServiceRepository {
	return &consultedServiceRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewPaymentVoucherRepository(db *sqlx.DB) repository.PaymentVoucherRepository {
	return &paymentVoucherRepository{NewBaseRepository(db)}
}

func NewCatalogRepository(db *sqlx.DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}
