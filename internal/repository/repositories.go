package repository

import (
	"time"

	"github.com/liaosimin/pictora/internal/model"
)

type UserStore interface {
	FindByID(id uint) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	FindByOpenID(openid string) (*model.User, error)
	// CreateWithCredit 在同一事务中创建用户和初始积分，
	// 任一失败则整体回滚，不会出现无积分账户。
	CreateWithCredit(user *model.User, initialAmount int) error
	UsernameExists(username string) (bool, error)
}

type CreditStore interface {
	FindByUserID(userID uint) (*model.Credit, error)
	// Debit 以单条条件更新扣减积分，余额不足时返回 ErrInsufficientCredit。
	Debit(userID uint, cost int) error
	// Add 原子增加积分
	Add(userID uint, delta int) error
	// GrantVip 置 VIP 标记并赠送积分，单条更新完成
	GrantVip(userID uint, bonus int) error
}

type StyleStore interface {
	FindByID(id uint) (*model.Style, error)
	Create(style *model.Style) error
	List(categoryID *uint, limit, offset int) ([]model.Style, error)
	ListCategories(limit, offset int) ([]model.StyleCategory, error)
	// ListRecentByUser 返回用户最近任务用到的去重风格，按任务时间倒序
	ListRecentByUser(userID uint, limit int) ([]model.Style, error)
}

type TaskStore interface {
	FindByIDAndUser(id, userID uint) (*model.Task, error)
	ListByUser(userID uint, status string, limit int) ([]model.Task, error)
	// CreateWithDebit 在同一事务中插入任务并扣减积分；
	// 余额不足时整体回滚，不会留下任务记录。
	CreateWithDebit(task *model.Task, cost int) error
	// ResetWithDebit 在同一事务中将失败任务重置为 pending 并再次扣减积分
	ResetWithDebit(task *model.Task, cost int) error
	MarkProcessing(id uint, progress float64) error
	MarkCompleted(id uint, outputImage string, at time.Time) error
	MarkFailed(id uint, errMsg string) error
}

type Repositories struct {
	User   UserStore
	Credit CreditStore
	Style  StyleStore
	Task   TaskStore
}

func NewRepositories(user UserStore, credit CreditStore, style StyleStore, task TaskStore) *Repositories {
	return &Repositories{
		User:   user,
		Credit: credit,
		Style:  style,
		Task:   task,
	}
}
