package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/payment"
	"github.com/trezcool/classbook/services/email"
	"github.com/trezcool/classbook/storage/database/inmem"
	"github.com/trezcool/classbook/testutil"
)

func money(m core.Money) *core.Money { return &m }

type fixture struct {
	svc     *payment.Service
	mailSvc *emailsvc.ConsoleServiceMock
	admin   access.Actor
	teacher access.Actor
	student access.Actor
	other   access.Actor
}

func setup(t *testing.T) fixture {
	db := inmemdb.Open()
	accounts := inmemdb.NewAccountRepository(db)
	conf := core.NewTestConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	admin := testutil.CreateAccount(t, accounts, account.RoleAdmin, "admin@icc.edu", "Ada", "Min", "", true)
	teacher := testutil.CreateAccount(t, accounts, account.RoleTeacher, "tess@icc.edu", "Tess", "Lim", "", true)
	student := testutil.CreateAccount(t, accounts, account.RoleStudent, "ana@icc.edu", "Ana", "Reyes", "", true)
	other := testutil.CreateAccount(t, accounts, account.RoleStudent, "ben@icc.edu", "Ben", "Cruz", "", true)

	return fixture{
		svc:     payment.NewService(inmemdb.NewPaymentRepository(db), accounts, mailSvc, testutil.NewValidator(), conf, nil),
		mailSvc: mailSvc,
		admin:   access.ActorOf(admin),
		teacher: access.ActorOf(teacher),
		student: access.ActorOf(student),
		other:   access.ActorOf(other),
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.admin, payment.NewRecord{StudentID: f.student.ID, TotalAmount: 1500000, Term: 1, DueDate: "2024-08-31"})
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", rec.AcademicYear)
	assert.Equal(t, core.Money(0), rec.AmountPaid)
	assert.Equal(t, core.Money(1500000), rec.Balance)
	assert.Equal(t, payment.StatusUnpaid, rec.Status)
	assert.Equal(t, time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC), rec.DueDate)
	assert.Equal(t, f.admin.ID, rec.CreatedBy)

	tests := []struct {
		name  string
		actor access.Actor
		nr    payment.NewRecord
		kind  core.ErrorKind
	}{
		{name: "same student, term and year", actor: f.admin, nr: payment.NewRecord{StudentID: f.student.ID, TotalAmount: 100, Term: 1, DueDate: "2024-09-30"}, kind: core.KindAlreadyExists},
		{name: "teacher", actor: f.teacher, nr: payment.NewRecord{StudentID: f.student.ID, TotalAmount: 100, Term: 2, DueDate: "2024-09-30"}, kind: core.KindForbidden},
		{name: "student", actor: f.student, nr: payment.NewRecord{StudentID: f.student.ID, TotalAmount: 100, Term: 2, DueDate: "2024-09-30"}, kind: core.KindForbidden},
		{name: "zero total", actor: f.admin, nr: payment.NewRecord{StudentID: f.student.ID, Term: 2, DueDate: "2024-09-30"}, kind: core.KindInvalidInput},
		{name: "bad due date", actor: f.admin, nr: payment.NewRecord{StudentID: f.student.ID, TotalAmount: 100, Term: 2, DueDate: "30/09/2024"}, kind: core.KindInvalidInput},
		{name: "bad academic year", actor: f.admin, nr: payment.NewRecord{StudentID: f.student.ID, TotalAmount: 100, Term: 2, AcademicYear: "2024-2026", DueDate: "2024-09-30"}, kind: core.KindInvalidInput},
		{name: "unknown student", actor: f.admin, nr: payment.NewRecord{StudentID: "missing", TotalAmount: 100, Term: 2, DueDate: "2024-09-30"}, kind: core.KindNotFound},
		{name: "not a student", actor: f.admin, nr: payment.NewRecord{StudentID: f.teacher.ID, TotalAmount: 100, Term: 2, DueDate: "2024-09-30"}, kind: core.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, tt.nr)
			assert.Equal(t, tt.kind, core.ErrorKindOf(err))
		})
	}

	t.Run("another academic year", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.admin, payment.NewRecord{StudentID: f.student.ID, TotalAmount: 100, Term: 1, AcademicYear: "2025-2026", DueDate: "2025-08-31"})
		assert.NoError(t, err)
	})
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rec, err := f.svc.Create(ctx, f.admin, payment.NewRecord{StudentID: f.student.ID, TotalAmount: 1500000, Term: 1, DueDate: "2024-08-31"})
	require.NoError(t, err)

	got, err := f.svc.Update(ctx, f.admin, rec.ID, payment.Update{AmountPaid: money(500000)})
	require.NoError(t, err)
	assert.Equal(t, core.Money(1000000), got.Balance)
	assert.Equal(t, payment.StatusPartial, got.Status)

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@icc.edu", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Partial")

	t.Run("remarks only", func(t *testing.T) {
		f.mailSvc.Reset()
		got, err := f.svc.Update(ctx, f.admin, rec.ID, payment.Update{Remarks: func() *string { s := " Cash "; return &s }()})
		require.NoError(t, err)
		assert.Equal(t, "Cash", got.Remarks)
		assert.Equal(t, core.Money(500000), got.AmountPaid)
		assert.Empty(t, f.mailSvc.SentMessages())
	})

	t.Run("over the total", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.admin, rec.ID, payment.Update{AmountPaid: money(1500001)})
		assert.Equal(t, core.KindInvalidAmount, core.ErrorKindOf(err))

		stored, err := f.svc.Get(ctx, f.admin, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, core.Money(500000), stored.AmountPaid)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.admin, rec.ID, payment.Update{AmountPaid: money(-1)})
		assert.Equal(t, core.KindInvalidAmount, core.ErrorKindOf(err))
	})

	t.Run("paid in full", func(t *testing.T) {
		got, err := f.svc.Update(ctx, f.admin, rec.ID, payment.Update{AmountPaid: money(1500000)})
		require.NoError(t, err)
		assert.Equal(t, core.Money(0), got.Balance)
		assert.Equal(t, payment.StatusPaid, got.Status)
	})

	t.Run("teacher", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.teacher, rec.ID, payment.Update{AmountPaid: money(1)})
		assert.Equal(t, core.KindForbidden, core.ErrorKindOf(err))
	})

	t.Run("unknown record", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.admin, "missing", payment.Update{AmountPaid: money(1)})
		assert.Equal(t, core.KindNotFound, core.ErrorKindOf(err))
	})
}

// lostAccounts loses every account once lost is set.
type lostAccounts struct {
	payment.AccountFinder
	lost bool
}

func (a *lostAccounts) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	if a.lost {
		return account.Account{}, account.ErrNotFound
	}
	return a.AccountFinder.GetAccountByID(ctx, id)
}

func TestService_Update_ReceiptLookupFails(t *testing.T) {
	db := inmemdb.Open()
	conf := core.NewTestConfig()
	repo := inmemdb.NewAccountRepository(db)
	accounts := &lostAccounts{AccountFinder: repo}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	logger := new(testutil.LoggerMock)
	svc := payment.NewService(inmemdb.NewPaymentRepository(db), accounts, mailSvc, testutil.NewValidator(), conf, logger)

	admin := access.ActorOf(testutil.CreateAccount(t, repo, account.RoleAdmin, "admin@icc.edu", "Ada", "Min", "", true))
	student := testutil.CreateAccount(t, repo, account.RoleStudent, "ana@icc.edu", "Ana", "Reyes", "", true)
	ctx := context.Background()
	rec, err := svc.Create(ctx, admin, payment.NewRecord{StudentID: student.ID, TotalAmount: 1500000, Term: 1, DueDate: "2024-08-31"})
	require.NoError(t, err)

	accounts.lost = true
	got, err := svc.Update(ctx, admin, rec.ID, payment.Update{AmountPaid: money(500000)})
	require.NoError(t, err, "the payment is stored even when no receipt can be sent")
	assert.Equal(t, core.Money(500000), got.AmountPaid)
	assert.Empty(t, mailSvc.SentMessages())

	entries := logger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Level)
	assert.Equal(t, "sending payment receipt", entries[0].Msg)
	require.Len(t, entries[0].Args, 2)
	assert.Equal(t, account.ErrNotFound, errors.Cause(entries[0].Args[0].(error)))
	assert.Equal(t, map[string]interface{}{"payment_id": rec.ID, "student_id": student.ID}, entries[0].Args[1])
}

func TestService_Balance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.admin, payment.NewRecord{StudentID: f.student.ID, TotalAmount: 1000000, Term: 1, DueDate: "2024-08-31"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.admin, payment.NewRecord{StudentID: f.student.ID, TotalAmount: 800075, Term: 2, DueDate: "2025-01-31"})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, f.admin, first.ID, payment.Update{AmountPaid: money(1000000)})
	require.NoError(t, err)

	sum, err := f.svc.Balance(ctx, f.student, f.student.ID)
	require.NoError(t, err)
	view := sum.View()
	assert.Equal(t, "18000.75", view.TotalAmount)
	assert.Equal(t, "10000.00", view.TotalPaid)
	assert.Equal(t, "8000.75", view.TotalBalance)
	assert.Equal(t, payment.StatusCounts{Paid: 1, Unpaid: 1}, view.PaymentsByStatus)
	assert.Len(t, view.Details, 2)

	t.Run("another student's balance", func(t *testing.T) {
		_, err := f.svc.Balance(ctx, f.other, f.student.ID)
		assert.Equal(t, core.KindForbidden, core.ErrorKindOf(err))
	})

	t.Run("teacher", func(t *testing.T) {
		_, err := f.svc.Balance(ctx, f.teacher, f.student.ID)
		assert.Equal(t, core.KindForbidden, core.ErrorKindOf(err))
	})

	t.Run("no records", func(t *testing.T) {
		sum, err := f.svc.Balance(ctx, f.admin, f.other.ID)
		require.NoError(t, err)
		view := sum.View()
		assert.Equal(t, "0.00", view.TotalBalance)
		assert.Empty(t, view.Details)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := f.svc.Balance(ctx, f.admin, "missing")
		assert.Equal(t, core.KindNotFound, core.ErrorKindOf(err))
	})

	t.Run("query by status", func(t *testing.T) {
		records, err := f.svc.Query(ctx, f.admin, payment.QueryFilter{Status: payment.StatusUnpaid})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 2, records[0].Term)

		_, err = f.svc.Query(ctx, f.student, payment.QueryFilter{})
		assert.Equal(t, core.KindForbidden, core.ErrorKindOf(err))
	})
}
