package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/liaosimin/pictora/internal/model"
	"github.com/liaosimin/pictora/internal/repository"
	"github.com/liaosimin/pictora/internal/service"
	"github.com/liaosimin/pictora/internal/testutils"
	"github.com/liaosimin/pictora/pkg/wechat"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 最小合法 PNG 文件头，足以通过内容嗅探
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type stubSynthesizer struct {
	err error
}

func (s *stubSynthesizer) GenerateImage(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("output"), nil
}

type stubIdentityProvider struct {
	openID string
	err    error
}

func (s *stubIdentityProvider) JSCode2Session(ctx context.Context, code string) (*wechat.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &wechat.Session{OpenID: s.openID}, nil
}

type httpEnv struct {
	gdb    *gorm.DB
	engine *gin.Engine
	synth  *stubSynthesizer
	idp    *stubIdentityProvider
}

// fakeAuth 绕过 JWT 解析，直接以指定用户身份注入上下文
func fakeAuth(uid uint, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("id", uid)
		c.Set("admin", admin)
		c.Next()
	}
}

// setupHTTPEnv 组装一套带真实数据库与桩外部依赖的路由
func setupHTTPEnv(t *testing.T, uid uint, admin bool) *httpEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmp := t.TempDir()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldwd) })

	gdb := testutils.SetupDB(t)
	repos := repository.NewRepositories(
		repository.NewUserRepository(gdb),
		repository.NewCreditRepository(gdb),
		repository.NewStyleRepository(gdb),
		repository.NewTaskRepository(gdb),
	)
	synth := &stubSynthesizer{}
	idp := &stubIdentityProvider{}
	app := service.NewAppService(repos, idp, synth, nil, "")
	h := NewHandler(app)

	r := gin.New()
	auth := fakeAuth(uid, admin)
	r.POST("/users/register", h.Register)
	r.POST("/users/login", h.Login)
	r.GET("/users/me", auth, h.GetSelfInfo)
	r.POST("/vip/subscribe", auth, h.SubscribeVip)
	r.GET("/styles", h.ListStyles)
	r.GET("/styles/categories", h.ListStyleCategories)
	r.GET("/styles/recent", auth, h.ListRecentStyles)
	r.POST("/styles", auth, h.CreateStyle)
	r.POST("/tasks", auth, h.CreateTask)
	r.GET("/tasks", auth, h.ListTasks)
	r.GET("/tasks/:id", auth, h.GetTask)
	r.POST("/tasks/:id/retry", auth, h.RetryTask)

	return &httpEnv{gdb: gdb, engine: r, synth: synth, idp: idp}
}

func (e *httpEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *httpEnv) doJSON(t *testing.T, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("序列化请求体失败: %v", err)
	}
	return e.do(t, method, path, bytes.NewReader(data), "application/json")
}

func seedHTTPUser(t *testing.T, gdb *gorm.DB, username string, amount int) *model.User {
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

// buildTaskForm 构造提交任务的 multipart 请求体
func buildTaskForm(t *testing.T, styleID uint, filename string, content []byte, prompt string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("style_id", strconv.FormatUint(uint64(styleID), 10)); err != nil {
		t.Fatalf("写入 style_id 失败: %v", err)
	}
	if prompt != "" {
		if err := mw.WriteField("prompt", prompt); err != nil {
			t.Fatalf("写入 prompt 失败: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("创建文件字段失败: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("写入文件内容失败: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("关闭 multipart writer 失败: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// 测试内容：验证注册接口返回 200 与用户 ID，重复注册返回 409
func TestHTTPRegister(t *testing.T) {
	env := setupHTTPEnv(t, 0, false)

	w := env.doJSON(t, http.MethodPost, "/users/register", gin.H{
		"username": "webuser",
		"password": "Passw0rd!",
		"email":    "web@example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("期望状态码 200，实际为 %d，响应: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
		UserID  uint   `json:"user_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.UserID == 0 {
		t.Fatal("期望返回非零用户 ID")
	}

	w = env.doJSON(t, http.MethodPost, "/users/register", gin.H{
		"username": "webuser",
		"password": "Passw0rd!",
		"email":    "web@example.com",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("期望状态码 409，实际为 %d", w.Code)
	}
}

// 测试内容：验证微信登录接口返回令牌与新用户标记，无效 code 返回 400
func TestHTTPLogin(t *testing.T) {
	env := setupHTTPEnv(t, 0, false)
	env.idp.openID = "http-openid"

	w := env.doJSON(t, http.MethodPost, "/users/login", gin.H{"code": "ok-code"})
	if w.Code != http.StatusOK {
		t.Fatalf("期望状态码 200，实际为 %d，响应: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		IsNewUser   bool   `json:"is_new_user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" || !resp.IsNewUser {
		t.Fatalf("登录响应不符: %+v", resp)
	}

	env.idp.err = errors.New("invalid code")
	w = env.doJSON(t, http.MethodPost, "/users/login", gin.H{"code": "bad-code"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("期望状态码 400，实际为 %d", w.Code)
	}
}

// 测试内容：验证任务提交接口完成整个生成流程并返回 completed 任务
func TestHTTPCreateTask(t *testing.T) {
	env := setupHTTPEnv(t, 1, false)
	user := seedHTTPUser(t, env.gdb, "taskuser", 5)
	if user.ID != 1 {
		t.Fatalf("前置条件：期望用户 ID 为 1，实际为 %d", user.ID)
	}
	style := model.Style{Name: "梵高", PromptTemplate: "van gogh style"}
	if err := env.gdb.Create(&style).Error; err != nil {
		t.Fatalf("创建风格失败: %v", err)
	}

	body, contentType := buildTaskForm(t, style.ID, "photo.png", pngMagic, "sunset")
	w := env.do(t, http.MethodPost, "/tasks", body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("期望状态码 200，实际为 %d，响应: %s", w.Code, w.Body.String())
	}
	var task model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &task); err != nil {
		t.Fatalf("解析任务响应失败: %v", err)
	}
	if task.Status != model.TaskStatusCompleted {
		t.Fatalf("期望状态 completed，实际为 %s (error=%s)", task.Status, task.Error)
	}
	if task.OutputImage == "" {
		t.Fatal("期望结果路径非空")
	}
}

// 测试内容：验证扩展名与内容不符的上传被拒绝且不扣费
func TestHTTPCreateTask_RejectsFakeImage(t *testing.T) {
	env := setupHTTPEnv(t, 1, false)
	seedHTTPUser(t, env.gdb, "fakeuser", 5)
	style := model.Style{Name: "莫奈", PromptTemplate: "monet style"}
	if err := env.gdb.Create(&style).Error; err != nil {
		t.Fatalf("创建风格失败: %v", err)
	}

	body, contentType := buildTaskForm(t, style.ID, "evil.png", []byte("not an image at all"), "")
	w := env.do(t, http.MethodPost, "/tasks", body, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("期望状态码 400，实际为 %d，响应: %s", w.Code, w.Body.String())
	}

	var credit model.Credit
	env.gdb.Where("user_id = ?", 1).First(&credit)
	if credit.Amount != 5 {
		t.Fatalf("被拒绝的上传不应扣费，期望余额 5，实际为 %d", credit.Amount)
	}
}

// 测试内容：验证余额不足时任务提交返回 402
func TestHTTPCreateTask_PaymentRequired(t *testing.T) {
	env := setupHTTPEnv(t, 1, false)
	seedHTTPUser(t, env.gdb, "pooruser", 0)
	style := model.Style{Name: "浮世绘", PromptTemplate: "ukiyo-e style"}
	if err := env.gdb.Create(&style).Error; err != nil {
		t.Fatalf("创建风格失败: %v", err)
	}

	body, contentType := buildTaskForm(t, style.ID, "photo.png", pngMagic, "")
	w := env.do(t, http.MethodPost, "/tasks", body, contentType)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("期望状态码 402，实际为 %d，响应: %s", w.Code, w.Body.String())
	}

	// 被拒的提交不应留存上传原图
	entries, err := os.ReadDir("uploads")
	if err == nil && len(entries) != 0 {
		t.Fatalf("期望上传目录为空，实际有 %d 个文件", len(entries))
	}
}

// 测试内容：验证风格不存在的提交返回 404 且不留存上传原图
func TestHTTPCreateTask_UnknownStyleCleansUpload(t *testing.T) {
	env := setupHTTPEnv(t, 1, false)
	seedHTTPUser(t, env.gdb, "loststyle", 5)

	body, contentType := buildTaskForm(t, 999, "photo.png", pngMagic, "")
	w := env.do(t, http.MethodPost, "/tasks", body, contentType)
	if w.Code != http.StatusNotFound {
		t.Fatalf("期望状态码 404，实际为 %d，响应: %s", w.Code, w.Body.String())
	}

	entries, err := os.ReadDir("uploads")
	if err == nil && len(entries) != 0 {
		t.Fatalf("期望上传目录为空，实际有 %d 个文件", len(entries))
	}
}

// 测试内容：验证重试已完成任务返回 400
func TestHTTPRetryCompletedTask(t *testing.T) {
	env := setupHTTPEnv(t, 1, false)
	seedHTTPUser(t, env.gdb, "retryuser", 5)
	style := model.Style{Name: "水墨", PromptTemplate: "ink wash"}
	if err := env.gdb.Create(&style).Error; err != nil {
		t.Fatalf("创建风格失败: %v", err)
	}

	body, contentType := buildTaskForm(t, style.ID, "photo.png", pngMagic, "")
	w := env.do(t, http.MethodPost, "/tasks", body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("提交任务失败: %d %s", w.Code, w.Body.String())
	}
	var task model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &task); err != nil {
		t.Fatalf("解析任务响应失败: %v", err)
	}

	w = env.do(t, http.MethodPost, "/tasks/"+strconv.FormatUint(uint64(task.ID), 10)+"/retry", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("期望状态码 400，实际为 %d，响应: %s", w.Code, w.Body.String())
	}
}

// 测试内容：验证任务列表只返回自己的任务并支持状态过滤
func TestHTTPListTasks(t *testing.T) {
	env := setupHTTPEnv(t, 1, false)
	seedHTTPUser(t, env.gdb, "listuser", 10)
	other := seedHTTPUser(t, env.gdb, "otheruser", 10)
	style := model.Style{Name: "素描", PromptTemplate: "sketch"}
	if err := env.gdb.Create(&style).Error; err != nil {
		t.Fatalf("创建风格失败: %v", err)
	}
	tasks := []model.Task{
		{UserID: 1, StyleID: style.ID, InputImage: "a.png", Status: model.TaskStatusCompleted},
		{UserID: 1, StyleID: style.ID, InputImage: "b.png", Status: model.TaskStatusFailed},
		{UserID: other.ID, StyleID: style.ID, InputImage: "c.png", Status: model.TaskStatusCompleted},
	}
	for i := range tasks {
		if err := env.gdb.Create(&tasks[i]).Error; err != nil {
			t.Fatalf("创建任务失败: %v", err)
		}
	}

	w := env.do(t, http.MethodGet, "/tasks", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望状态码 200，实际为 %d", w.Code)
	}
	var list []model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("解析任务列表失败: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 个任务，实际为 %d", len(list))
	}

	w = env.do(t, http.MethodGet, "/tasks?status=failed", nil, "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("解析任务列表失败: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.TaskStatusFailed {
		t.Fatalf("期望过滤出 1 个 failed 任务，实际为 %d 个", len(list))
	}

	// 访问他人任务按不存在处理
	w = env.do(t, http.MethodGet, "/tasks/"+strconv.FormatUint(uint64(tasks[2].ID), 10), nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("期望状态码 404，实际为 %d", w.Code)
	}
}

// 测试内容：验证个人信息与 VIP 订阅接口
func TestHTTPUserInfoAndVip(t *testing.T) {
	env := setupHTTPEnv(t, 1, false)
	seedHTTPUser(t, env.gdb, "meuser", 3)

	w := env.do(t, http.MethodGet, "/users/me", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望状态码 200，实际为 %d", w.Code)
	}
	var profile struct {
		Username string `json:"username"`
		Credits  int    `json:"credits"`
		IsVip    bool   `json:"is_vip"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if profile.Username != "meuser" || profile.Credits != 3 || profile.IsVip {
		t.Fatalf("个人信息不符: %+v", profile)
	}

	w = env.do(t, http.MethodPost, "/vip/subscribe", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望状态码 200，实际为 %d，响应: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/users/me", nil, "")
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if profile.Credits != 103 || !profile.IsVip {
		t.Fatalf("期望订阅后余额 103 且 VIP 置位，实际: %+v", profile)
	}
}

// 测试内容：验证风格列表接口公开可访问并按热度排序
func TestHTTPListStyles(t *testing.T) {
	env := setupHTTPEnv(t, 0, false)
	styles := []model.Style{
		{Name: "冷门", PromptTemplate: "a", Popular: 1},
		{Name: "热门", PromptTemplate: "b", Popular: 99},
	}
	for i := range styles {
		if err := env.gdb.Create(&styles[i]).Error; err != nil {
			t.Fatalf("创建风格失败: %v", err)
		}
	}

	w := env.do(t, http.MethodGet, "/styles", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望状态码 200，实际为 %d", w.Code)
	}
	var list []model.Style
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("解析风格列表失败: %v", err)
	}
	if len(list) != 2 || list[0].Name != "热门" {
		t.Fatalf("期望按热度降序返回 2 个风格，实际: %d 个", len(list))
	}
}
