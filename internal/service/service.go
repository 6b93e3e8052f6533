package service

import (
	"context"

	"github.com/liaosimin/pictora/internal/repository"
	"github.com/liaosimin/pictora/pkg/wechat"

	"github.com/redis/go-redis/v9"
)

// IdentityProvider 将外部登录 code 换成稳定的外部身份标识。
// 由 pkg/wechat 的客户端实现，测试中用假实现替换。
type IdentityProvider interface {
	JSCode2Session(ctx context.Context, code string) (*wechat.Session, error)
}

// Synthesizer 执行实际的图片生成调用，返回生成图片的字节内容。
// 由 pkg/openai 的客户端实现。
type Synthesizer interface {
	GenerateImage(ctx context.Context, image []byte, prompt string) ([]byte, error)
}

// AppService 聚合各业务服务，在进程启动时构造一次并注入依赖
type AppService struct {
	Auth  *AuthService
	User  *UserService
	Style *StyleService
	Task  *TaskService
}

func NewAppService(repos *repository.Repositories, idp IdentityProvider, synth Synthesizer, cache *redis.Client, cachePrefix string) *AppService {
	return &AppService{
		Auth:  NewAuthService(repos.User, idp),
		User:  NewUserService(repos.User, repos.Credit),
		Style: NewStyleService(repos.Style, cache, cachePrefix),
		Task:  NewTaskService(repos.Task, repos.Style, synth),
	}
}
