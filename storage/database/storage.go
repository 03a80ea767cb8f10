package database

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/announcement"
	"github.com/trezcool/classbook/core/course"
	"github.com/trezcool/classbook/core/grade"
	"github.com/trezcool/classbook/core/payment"
	boltdb "github.com/trezcool/classbook/storage/database/bolt"
	inmemdb "github.com/trezcool/classbook/storage/database/inmem"
	sqlxrepos "github.com/trezcool/classbook/storage/database/sqlx"
)

// Storage holds the repositories of one storage engine.
type Storage struct {
	Accounts      account.Repository
	Courses       course.Repository
	Grades        grade.Repository
	Payments      payment.Repository
	Announcements announcement.Repository

	// SQL is set for the postgres engine only.
	SQL *sql.DB

	close func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage sets up the repositories of conf.Database.Engine.
// The postgres database is created and migrated when needed.
func OpenStorage(conf *core.Config) (*Storage, error) {
	switch conf.Database.Engine {
	case core.EngineMemory:
		db := inmemdb.Open()
		return &Storage{
			Accounts:      inmemdb.NewAccountRepository(db),
			Courses:       inmemdb.NewCourseRepository(db),
			Grades:        inmemdb.NewGradeRepository(db),
			Payments:      inmemdb.NewPaymentRepository(db),
			Announcements: inmemdb.NewAnnouncementRepository(db),
		}, nil

	case core.EngineBolt:
		db, err := boltdb.Open(conf.Database.Path)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Accounts:      boltdb.NewAccountRepository(db),
			Courses:       boltdb.NewCourseRepository(db),
			Grades:        boltdb.NewGradeRepository(db),
			Payments:      boltdb.NewPaymentRepository(db),
			Announcements: boltdb.NewAnnouncementRepository(db),
			close:         db.Close,
		}, nil

	case core.EnginePostgres:
		if err := CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := Open(conf)
		if err != nil {
			return nil, err
		}
		if err = Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Storage{
			Accounts:      sqlxrepos.NewAccountRepository(db),
			Courses:       sqlxrepos.NewCourseRepository(db),
			Grades:        sqlxrepos.NewGradeRepository(db),
			Payments:      sqlxrepos.NewPaymentRepository(db),
			Announcements: sqlxrepos.NewAnnouncementRepository(db),
			SQL:           db.DB,
			close:         db.Close,
		}, nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}
