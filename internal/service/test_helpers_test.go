package service

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"

	"github.com/liaosimin/pictora/internal/model"
	"github.com/liaosimin/pictora/internal/repository"
	"github.com/liaosimin/pictora/internal/testutils"
	"github.com/liaosimin/pictora/pkg/wechat"

	"gorm.io/gorm"
)

// fakeSynthesizer 桩实现：按配置返回固定结果或错误，并统计调用次数
type fakeSynthesizer struct {
	output []byte
	err    error
	calls  int32
}

func (f *fakeSynthesizer) GenerateImage(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.output != nil {
		return f.output, nil
	}
	return []byte("generated-image"), nil
}

// fakeIdentityProvider 桩实现：固定返回 openid 或错误
type fakeIdentityProvider struct {
	session *wechat.Session
	err     error
}

func (f *fakeIdentityProvider) JSCode2Session(ctx context.Context, code string) (*wechat.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.session != nil {
		return f.session, nil
	}
	return nil, errors.New("no session configured")
}

type testEnv struct {
	gdb   *gorm.DB
	repos *repository.Repositories
	synth *fakeSynthesizer
	idp   *fakeIdentityProvider
	app   *AppService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := testutils.SetupDB(t)
	repos := repository.NewRepositories(
		repository.NewUserRepository(gdb),
		repository.NewCreditRepository(gdb),
		repository.NewStyleRepository(gdb),
		repository.NewTaskRepository(gdb),
	)
	synth := &fakeSynthesizer{}
	idp := &fakeIdentityProvider{}
	app := NewAppService(repos, idp, synth, nil, "")

	return &testEnv{gdb: gdb, repos: repos, synth: synth, idp: idp, app: app}
}

// chdirTemp 切换到临时目录，生成结果与上传文件不污染源码树
func chdirTemp(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
}

func seedUser(t *testing.T, gdb *gorm.DB, username string, amount int) *model.User {
	t.Helper()
	u := model.User{Username: username, Password: "x"}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := gdb.Create(&model.Credit{UserID: u.ID, Amount: amount}).Error; err != nil {
		t.Fatalf("create credit: %v", err)
	}
	return &u
}

func seedStyle(t *testing.T, gdb *gorm.DB, name, template string) *model.Style {
	t.Helper()
	s := model.Style{Name: name, PromptTemplate: template}
	if err := gdb.Create(&s).Error; err != nil {
		t.Fatalf("create style: %v", err)
	}
	return &s
}

// writeInputImage 写一个输入图文件并返回路径
func writeInputImage(t *testing.T, name string) string {
	t.Helper()
	if err := os.MkdirAll("uploads", 0755); err != nil {
		t.Fatalf("mkdir uploads: %v", err)
	}
	path := "uploads/" + name
	if err := os.WriteFile(path, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 0644); err != nil {
		t.Fatalf("write input image: %v", err)
	}
	return path
}
