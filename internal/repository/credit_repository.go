package repository

import (
	"errors"
	"time"

	"github.com/liaosimin/pictora/internal/model"

	"gorm.io/gorm"
)

// ErrInsufficientCredit 表示扣减会使余额为负，更新被拒绝
var ErrInsufficientCredit = errors.New("积分不足")

type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) CreditStore {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) FindByUserID(userID uint) (*model.Credit, error) {
	var credit model.Credit
	if err := r.db.Where("user_id = ?", userID).First(&credit).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

// Debit 扣减积分。检查与扣减必须是同一条件更新语句，
// 并发提交时数据库保证余额不会被扣成负数。
func (r *CreditRepository) Debit(userID uint, cost int) error {
	return debitTx(r.db, userID, cost)
}

// debitTx 供本包各仓储在事务内复用同一条扣减语句
func debitTx(tx *gorm.DB, userID uint, cost int) error {
	result := tx.Model(&model.Credit{}).
		Where("user_id = ? AND amount >= ?", userID, cost).
		UpdateColumn("amount", gorm.Expr("amount - ?", cost))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 没有命中行：积分记录不存在，或余额不足
		var count int64
		if err := tx.Model(&model.Credit{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrInsufficientCredit
	}
	return nil
}

func (r *CreditRepository) Add(userID uint, delta int) error {
	result := r.db.Model(&model.Credit{}).
		Where("user_id = ?", userID).
		UpdateColumn("amount", gorm.Expr("amount + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *CreditRepository) GrantVip(userID uint, bonus int) error {
	now := time.Now()
	result := r.db.Model(&model.Credit{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"amount":               gorm.Expr("amount + ?", bonus),
			"is_vip":               true,
			"last_vip_credit_date": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
