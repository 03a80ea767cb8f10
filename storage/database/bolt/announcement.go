package boltdb

import (
	"context"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/trezcool/classbook/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db}
}

func getAnnouncement(tx *bbolt.Tx, id string) (announcement.Announcement, error) {
	a, found, err := get[announcement.Announcement](tx, announcementBucket, id)
	if err != nil {
		return announcement.Announcement{}, err
	}
	if !found {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	return a, nil
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		return put(tx, announcementBucket, a.ID, a)
	})
	if err != nil {
		return announcement.Announcement{}, err
	}
	return a, nil
}

func (repo *announcementRepository) GetAnnouncementByID(ctx context.Context, id string) (a announcement.Announcement, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		a, err = getAnnouncement(tx, id)
		return err
	})
	return a, err
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, filter announcement.QueryFilter) (rows []announcement.Announcement, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		rows, err = list(tx, announcementBucket, filter.Match)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := getAnnouncement(tx, a.ID); err != nil {
			return err
		}
		return put(tx, announcementBucket, a.ID, a)
	})
	if err != nil {
		return announcement.Announcement{}, err
	}
	return a, nil
}
