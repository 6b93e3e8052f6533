package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/liaosimin/pictora/internal/common"
	"github.com/liaosimin/pictora/internal/config"
	"github.com/liaosimin/pictora/internal/consts"
	"github.com/liaosimin/pictora/internal/model"
	"github.com/liaosimin/pictora/internal/repository"
	"github.com/liaosimin/pictora/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	users repository.UserStore
	idp   IdentityProvider
}

func NewAuthService(users repository.UserStore, idp IdentityProvider) *AuthService {
	return &AuthService{users: users, idp: idp}
}

// Register 用户名密码注册，同时创建初始积分。
// 用户与积分在同一事务中写入，不会出现注册成功却没有积分的账户。
func (s *AuthService) Register(username, password, email string) (uint, error) {
	if ok, msg := utils.ValidateUsername(username); !ok {
		return 0, common.NewValidationError(msg)
	}
	if ok, msg := utils.ValidatePassword(password); !ok {
		return 0, common.NewValidationError(msg)
	}

	exists, err := s.users.UsernameExists(username)
	if err != nil {
		return 0, common.NewInternalError("查询用户信息失败")
	}
	if exists {
		return 0, common.NewConflictError("用户名已存在")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, common.NewInternalError("密码处理失败")
	}

	user := model.User{
		Username: username,
		Password: string(hashed),
		Email:    email,
		IsNew:    true,
	}
	if err := s.users.CreateWithCredit(&user, consts.InitialCreditAmount); err != nil {
		log.Printf("❌ 创建用户失败: %v", err)
		return 0, common.NewInternalError("注册失败，请稍后重试")
	}

	return user.ID, nil
}

// LoginWithPassword 用户名密码登录。
// 当前部署只开放微信登录入口，该方法作为受支持的登录模式保留。
func (s *AuthService) LoginWithPassword(username, password string) (string, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", common.NewUnauthorizedError("用户名或密码错误")
		}
		return "", common.NewInternalError("查询用户信息失败")
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", common.NewUnauthorizedError("用户名或密码错误")
	}

	return s.issueToken(user, "")
}

// LoginWithCode 用微信小程序登录 code 完成登录，
// 首次登录自动建档并发放初始积分。
func (s *AuthService) LoginWithCode(ctx context.Context, code string) (token string, isNewUser bool, err error) {
	if code == "" {
		return "", false, common.NewValidationError("缺少登录 code")
	}

	session, err := s.idp.JSCode2Session(ctx, code)
	if err != nil {
		return "", false, common.NewValidationError(fmt.Sprintf("微信登录失败: %v", err))
	}
	if session.OpenID == "" {
		return "", false, common.NewValidationError("无效的微信登录 code")
	}

	user, err := s.users.FindByOpenID(session.OpenID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, common.NewInternalError("查询用户信息失败")
		}

		// 新微信用户：占位用户名 + 初始积分，一个事务内完成
		openid := session.OpenID
		newUser := model.User{
			Username: "wx_" + uuid.New().String()[:8],
			OpenID:   &openid,
			IsNew:    true,
		}
		if err := s.users.CreateWithCredit(&newUser, consts.InitialCreditAmount); err != nil {
			log.Printf("❌ 创建微信用户失败: %v", err)
			return "", false, common.NewInternalError("登录失败，请稍后重试")
		}
		user = &newUser
		isNewUser = true
	}

	token, err = s.issueToken(user, session.OpenID)
	if err != nil {
		return "", false, err
	}
	return token, isNewUser, nil
}

func (s *AuthService) issueToken(user *model.User, openid string) (string, error) {
	cfg := config.Get()
	hours := cfg.JWT.ExpirationHours
	if hours <= 0 {
		hours = 24
	}
	token, err := utils.GenerateLoginToken(user.ID, user.Username, user.Admin, openid, time.Hour*time.Duration(hours))
	if err != nil {
		return "", common.NewInternalError("登录失败，请稍后重试")
	}
	return token, nil
}
