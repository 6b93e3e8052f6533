package repository

import (
	"time"

	"github.com/liaosimin/pictora/internal/model"

	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskStore {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) FindByIDAndUser(id, userID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) ListByUser(userID uint, status string, limit int) ([]model.Task, error) {
	var tasks []model.Task
	query := r.db.Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateWithDebit 插入任务并扣减积分，两步在同一事务中完成。
// 余额不足时整体回滚：积分不够的提交不会留下任务记录。
func (r *TaskRepository) CreateWithDebit(task *model.Task, cost int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return debitTx(tx, task.UserID, cost)
	})
}

// ResetWithDebit 重试前的状态重置与再次扣费，同一事务
func (r *TaskRepository) ResetWithDebit(task *model.Task, cost int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := debitTx(tx, task.UserID, cost); err != nil {
			return err
		}
		result := tx.Model(&model.Task{}).
			Where("id = ? AND status = ?", task.ID, model.TaskStatusFailed).
			Updates(map[string]interface{}{
				"status":       model.TaskStatusPending,
				"error":        "",
				"output_image": "",
				"progress":     0.0,
				"completed_at": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 状态已不是 failed，说明有并发重试，放弃本次
			return gorm.ErrRecordNotFound
		}
		task.Status = model.TaskStatusPending
		task.Error = ""
		task.OutputImage = ""
		task.Progress = 0.0
		task.CompletedAt = nil
		return nil
	})
}

func (r *TaskRepository) MarkProcessing(id uint, progress float64) error {
	return r.db.Model(&model.Task{}).
		Where("id = ? AND status = ?", id, model.TaskStatusPending).
		Updates(map[string]interface{}{
			"status":   model.TaskStatusProcessing,
			"progress": progress,
		}).Error
}

// MarkCompleted 只允许从非终态进入 completed；completed 任务不再被改写
func (r *TaskRepository) MarkCompleted(id uint, outputImage string, at time.Time) error {
	return r.db.Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, []string{model.TaskStatusPending, model.TaskStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusCompleted,
			"output_image": outputImage,
			"progress":     1.0,
			"error":        "",
			"completed_at": at,
		}).Error
}

func (r *TaskRepository) MarkFailed(id uint, errMsg string) error {
	now := time.Now()
	return r.db.Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, []string{model.TaskStatusPending, model.TaskStatusProcessing}).
		Updates(map[string]interface{}{
			"status":       model.TaskStatusFailed,
			"error":        errMsg,
			"completed_at": now,
		}).Error
}
