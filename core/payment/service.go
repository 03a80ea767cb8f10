package payment

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("payment record not found")
	ErrAlreadyExists   = core.NewAlreadyExistsError("a payment record already exists for this student, term and academic year")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
)

type (
	Repository interface {
		// CreatePayment fails with ErrAlreadyExists when the (student, term, academic year) triple is taken.
		CreatePayment(ctx context.Context, rec Record) (Record, error)
		GetPaymentByID(ctx context.Context, id string) (Record, error)
		// QueryPayments returns matching records, oldest first.
		QueryPayments(ctx context.Context, filter QueryFilter) ([]Record, error)
		// UpdatePayment writes the amounts, status, remarks and lastUpdated of rec in a single atomic write.
		UpdatePayment(ctx context.Context, rec Record) (Record, error)
	}

	AccountFinder interface {
		GetAccountByID(ctx context.Context, id string) (account.Account, error)
	}

	Service struct {
		repo     Repository
		accounts AccountFinder
		mailSvc  core.EmailService
		validate *validator.Validate
		conf     *core.Config
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	accounts AccountFinder,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{repo: repo, accounts: accounts, mailSvc: mailSvc, validate: validate, conf: conf, logger: logger}
}

func (svc *Service) Create(ctx context.Context, actor access.Actor, nr NewRecord) (Record, error) {
	if err := access.Authorize(actor, access.Write, access.Target{Kind: access.KindPayment}); err != nil {
		return Record{}, err
	}
	if err := nr.Validate(svc.validate, svc.conf.Payment.DefaultAcademicYear); err != nil {
		return Record{}, err
	}
	if _, err := svc.findStudent(ctx, nr.StudentID); err != nil {
		return Record{}, err
	}

	now := account.NowFunc().UTC()
	rec := Record{
		ID:           uuid.New().String(),
		StudentID:    nr.StudentID,
		Term:         nr.Term,
		AcademicYear: nr.AcademicYear,
		TotalAmount:  nr.TotalAmount,
		DueDate:      nr.dueDate,
		Remarks:      nr.Remarks,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
	}
	if err := ApplyPayment(&rec, 0, now); err != nil {
		return Record{}, err
	}

	rec, err := svc.repo.CreatePayment(ctx, rec)
	return rec, errors.Wrap(err, "creating payment record")
}

// Update applies a payment and/or remarks to a record and mails a receipt to the student.
func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, upd Update) (Record, error) {
	if err := access.Authorize(actor, access.Write, access.Target{Kind: access.KindPayment}); err != nil {
		return Record{}, err
	}
	if err := upd.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	rec, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Record{}, errors.Wrap(err, "finding payment record by ID")
	}

	now := account.NowFunc()
	if upd.AmountPaid != nil {
		if err = ApplyPayment(&rec, *upd.AmountPaid, now); err != nil {
			return Record{}, err
		}
	}
	if upd.Remarks != nil {
		rec.Remarks = *upd.Remarks
		rec.LastUpdated = now.UTC()
	}

	if rec, err = svc.repo.UpdatePayment(ctx, rec); err != nil {
		return Record{}, errors.Wrap(err, "updating payment record")
	}
	if upd.AmountPaid != nil {
		svc.sendReceipt(ctx, rec)
	}
	return rec, nil
}

func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Record, error) {
	rec, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err = access.Authorize(actor, access.Read, access.Target{Kind: access.KindPayment, OwnerID: rec.StudentID}); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ForStudent lists the payment records of a student; students may only list their own.
func (svc *Service) ForStudent(ctx context.Context, actor access.Actor, studentID string) ([]Record, error) {
	if err := access.Authorize(actor, access.Read, access.Target{Kind: access.KindPayment, OwnerID: studentID}); err != nil {
		return nil, err
	}
	if _, err := svc.findStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPayments(ctx, QueryFilter{StudentID: studentID})
}

// Balance aggregates the payment records of a student.
func (svc *Service) Balance(ctx context.Context, actor access.Actor, studentID string) (Summary, error) {
	records, err := svc.ForStudent(ctx, actor, studentID)
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(records), nil
}

func (svc *Service) Query(ctx context.Context, actor access.Actor, filter QueryFilter) ([]Record, error) {
	if err := access.Authorize(actor, access.Read, access.Target{Kind: access.KindPayment}); err != nil {
		return nil, err
	}
	return svc.repo.QueryPayments(ctx, filter)
}

func (svc *Service) findStudent(ctx context.Context, id string) (account.Account, error) {
	student, err := svc.accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.Account{}, ErrStudentNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding student by ID")
	}
	if !student.IsStudent() {
		return account.Account{}, ErrStudentNotFound
	}
	return student, nil
}

type receiptData struct {
	Name         string
	Term         int
	AcademicYear string
	TotalAmount  string
	AmountPaid   string
	Balance      string
	Status       Status
	DueDate      string
}

func (svc *Service) sendReceipt(ctx context.Context, rec Record) {
	if svc.mailSvc == nil {
		return
	}
	student, err := svc.accounts.GetAccountByID(ctx, rec.StudentID)
	if err != nil {
		// the payment is already stored; a missing receipt must not fail the update
		if svc.logger != nil {
			svc.logger.Error("sending payment receipt", errors.Wrap(err, "finding student"), map[string]interface{}{
				"payment_id": rec.ID,
				"student_id": rec.StudentID,
			})
		}
		return
	}

	locale := svc.conf.Locale
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.FullName(), Address: student.Email}},
		Subject:      fmt.Sprintf("Payment received: term %d, %s", rec.Term, rec.AcademicYear),
		TemplateName: "payment_receipt",
		TemplateData: receiptData{
			Name:         student.FirstName,
			Term:         rec.Term,
			AcademicYear: rec.AcademicYear,
			TotalAmount:  rec.TotalAmount.Display(locale),
			AmountPaid:   rec.AmountPaid.Display(locale),
			Balance:      rec.Balance.Display(locale),
			Status:       rec.Status,
			DueDate:      rec.DueDate.Format("2006-01-02"),
		},
	})
}
