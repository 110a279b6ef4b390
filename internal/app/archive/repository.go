package archive

import (
	"gorm.io/gorm"
)

type Repository interface {
	IsArchived(groupID int64) (bool, error)
	HasSnapshot(groupID int64) (bool, error)
	ParkGroupData(groupID int64) error
	RestoreGroupData(groupID int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) IsArchived(groupID int64) (bool, error) {
	var count int64
	err := r.db.Model(&ArchivedGroup{}).Where("group_id = ?", groupID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) HasSnapshot(groupID int64) (bool, error) {
	var count int64
	err := r.db.Model(&MemberArchive{}).Where("group_id = ?", groupID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ParkGroupData moves all live rows for the group into the archive tables
// and records the archived marker, replacing any previous snapshot. The
// whole move is one transaction so a failure leaves the live rows intact.
func (r *repository) ParkGroupData(groupID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&MemberArchive{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&BucketArchive{}).Error; err != nil {
			return err
		}

		if err := tx.Exec(`
			INSERT INTO group_members_archive
			SELECT * FROM group_members WHERE group_id = ?
		`, groupID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
			INSERT INTO stat_buckets_archive
			SELECT * FROM stat_buckets WHERE group_id = ?
		`, groupID).Error; err != nil {
			return err
		}

		if err := tx.Exec(`DELETE FROM group_members WHERE group_id = ?`, groupID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM stat_buckets WHERE group_id = ?`, groupID).Error; err != nil {
			return err
		}

		return tx.Exec(`
			INSERT INTO archived_groups (group_id, archived_at)
			VALUES (?, NOW())
			ON CONFLICT (group_id) DO UPDATE SET archived_at = NOW()
		`, groupID).Error
	})
}

// RestoreGroupData moves the parked snapshot back and clears the marker.
func (r *repository) RestoreGroupData(groupID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			INSERT INTO group_members
			SELECT * FROM group_members_archive WHERE group_id = ?
		`, groupID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
			INSERT INTO stat_buckets
			SELECT * FROM stat_buckets_archive WHERE group_id = ?
		`, groupID).Error; err != nil {
			return err
		}

		if err := tx.Where("group_id = ?", groupID).Delete(&MemberArchive{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&BucketArchive{}).Error; err != nil {
			return err
		}

		return tx.Where("group_id = ?", groupID).Delete(&ArchivedGroup{}).Error
	})
}
