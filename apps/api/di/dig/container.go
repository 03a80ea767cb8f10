package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/classbook/apps/api/echo"
	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/announcement"
	"github.com/trezcool/classbook/core/course"
	"github.com/trezcool/classbook/core/grade"
	"github.com/trezcool/classbook/core/payment"
	emailsvc "github.com/trezcool/classbook/services/email"
	logsvc "github.com/trezcool/classbook/services/logger"
	"github.com/trezcool/classbook/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	AccountSvc      *account.Service
	CourseSvc       *course.Service
	GradeSvc        *grade.Service
	PaymentSvc      *payment.Service
	AnnouncementSvc *announcement.Service
	Validate        *validator.Validate
	Translator      ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) *database.Storage {
	st, err := database.OpenStorage(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return st
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return validate
}

func newAccountService(st *database.Storage, mailSvc core.EmailService, validate *validator.Validate) *account.Service {
	return account.NewService(st.Accounts, mailSvc, validate, access.AuthorizeAccountWrite)
}

func newCourseService(st *database.Storage, validate *validator.Validate) *course.Service {
	return course.NewService(st.Courses, st.Accounts, validate)
}

func newGradeService(st *database.Storage, validate *validator.Validate) *grade.Service {
	return grade.NewService(st.Grades, st.Accounts, st.Courses, validate)
}

func newPaymentService(
	st *database.Storage,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *payment.Service {
	return payment.NewService(st.Payments, st.Accounts, mailSvc, validate, conf, logger)
}

func newAnnouncementService(st *database.Storage, validate *validator.Validate) *announcement.Service {
	return announcement.NewService(st.Announcements, st.Courses, validate)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		AccountSvc:      p.AccountSvc,
		CourseSvc:       p.CourseSvc,
		GradeSvc:        p.GradeSvc,
		PaymentSvc:      p.PaymentSvc,
		AnnouncementSvc: p.AnnouncementSvc,
		Validate:        p.Validate,
		Translator:      p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newAccountService))
	must(c.Provide(newCourseService))
	must(c.Provide(newGradeService))
	must(c.Provide(newPaymentService))
	must(c.Provide(newAnnouncementService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
