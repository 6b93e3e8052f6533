package service

import (
	"errors"

	"github.com/liaosimin/pictora/internal/common"
	"github.com/liaosimin/pictora/internal/consts"
	"github.com/liaosimin/pictora/internal/repository"

	"gorm.io/gorm"
)

type UserService struct {
	users   repository.UserStore
	credits repository.CreditStore
}

func NewUserService(users repository.UserStore, credits repository.CreditStore) *UserService {
	return &UserService{users: users, credits: credits}
}

type UserProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Credits  int    `json:"credits"`
	IsVip    bool   `json:"is_vip"`
}

func (s *UserService) Profile(userID uint) (*UserProfile, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("用户不存在")
		}
		return nil, common.NewInternalError("查询用户信息失败")
	}

	profile := UserProfile{
		Username: user.Username,
		Email:    user.Email,
	}

	credit, err := s.credits.FindByUserID(userID)
	if err == nil {
		profile.Credits = credit.Amount
		profile.IsVip = credit.IsVip
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewInternalError("查询积分信息失败")
	}

	return &profile, nil
}

// SubscribeVip 订阅 VIP：置 VIP 标记并赠送积分。
// 支付流程不在此处，只做余额变更。
func (s *UserService) SubscribeVip(userID uint) (int, error) {
	if err := s.credits.GrantVip(userID, consts.VipCreditBonus); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, common.NewNotFoundError("积分账户不存在")
		}
		return 0, common.NewInternalError("VIP 订阅失败")
	}
	return consts.VipCreditBonus, nil
}
