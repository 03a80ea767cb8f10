package inmemdb

import (
	"context"

	"github.com/trezcool/classbook/core/announcement"
)

type announcementRepository struct {
	db *table[announcement.Announcement]
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db.announcement}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.insert(a.ID, a)
	return a, nil
}

func (repo *announcementRepository) GetAnnouncementByID(_ context.Context, id string) (announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.get(id); ok {
		return *a, nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, filter announcement.QueryFilter) ([]announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.filter(filter.Match)
	// newest first
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (repo *announcementRepository) UpdateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.get(a.ID)
	if !ok {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	*orig = a
	return a, nil
}
