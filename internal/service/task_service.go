package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/liaosimin/pictora/internal/common"
	"github.com/liaosimin/pictora/internal/config"
	"github.com/liaosimin/pictora/internal/consts"
	"github.com/liaosimin/pictora/internal/model"
	"github.com/liaosimin/pictora/internal/repository"

	"gorm.io/gorm"
)

// 单次生成调用的时间上限
const synthesisTimeout = 5 * time.Minute

// TaskService 负责任务的完整生命周期：
// 创建、扣费、调用生成接口、落库终态以及失败任务重试。
// 任务状态只经由本服务变更。
type TaskService struct {
	tasks  repository.TaskStore
	styles repository.StyleStore
	synth  Synthesizer
}

func NewTaskService(tasks repository.TaskStore, styles repository.StyleStore, synth Synthesizer) *TaskService {
	return &TaskService{tasks: tasks, styles: styles, synth: synth}
}

// Submit 提交一个生成任务并同步驱动到终态。
// 扣费与任务落库在同一事务内完成：积分不足时不会留下任务记录，
// 任务已创建则必然伴随一次成功扣费。
// 生成失败不退积分，返回的任务对象带 failed 状态与错误信息。
func (s *TaskService) Submit(ctx context.Context, userID, styleID uint, inputImage, customPrompt string) (*model.Task, error) {
	style, err := s.styles.FindByID(styleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("风格不存在")
		}
		return nil, common.NewInternalError("查询风格失败")
	}

	task := model.Task{
		UserID:       userID,
		StyleID:      styleID,
		InputImage:   inputImage,
		CustomPrompt: customPrompt,
		Status:       model.TaskStatusPending,
		Progress:     0.0,
	}
	if err := s.tasks.CreateWithDebit(&task, consts.TaskCreditCost); err != nil {
		return nil, mapDebitError(err)
	}

	return s.process(&task, style), nil
}

// Retry 重试一个失败任务。重试按一次新的生成尝试计费。
func (s *TaskService) Retry(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByIDAndUser(taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("任务不存在或无权访问")
		}
		return nil, common.NewInternalError("查询任务失败")
	}

	if task.Status != model.TaskStatusFailed {
		return nil, common.NewInvalidStateError("只能重试失败的任务")
	}

	style, err := s.styles.FindByID(task.StyleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("风格不存在")
		}
		return nil, common.NewInternalError("查询风格失败")
	}

	// 重置为 pending 并再次扣费，同一事务
	if err := s.tasks.ResetWithDebit(task, consts.TaskCreditCost); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredit) {
			return nil, common.NewInsufficientCreditError("积分不足，请充值")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 并发重试抢先改了状态
			return nil, common.NewInvalidStateError("只能重试失败的任务")
		}
		return nil, common.NewInternalError("重试任务失败")
	}

	return s.process(task, style), nil
}

func (s *TaskService) Get(userID, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByIDAndUser(taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("任务不存在或无权访问")
		}
		return nil, common.NewInternalError("查询任务失败")
	}
	return task, nil
}

func (s *TaskService) List(userID uint, status string) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(userID, status, consts.TaskListLimit)
	if err != nil {
		return nil, common.NewInternalError("查询任务列表失败")
	}
	return tasks, nil
}

// process 执行生成并把任务驱动到终态。
// 使用独立于请求的 context：调用方断开连接后任务仍会完成落库，
// 不会有任务滞留在 pending。
func (s *TaskService) process(task *model.Task, style *model.Style) *model.Task {
	ctx, cancel := context.WithTimeout(context.Background(), synthesisTimeout)
	defer cancel()

	if err := s.tasks.MarkProcessing(task.ID, 0.1); err != nil {
		log.Printf("⚠️ 更新任务状态失败 task=%d: %v", task.ID, err)
	}

	// 最终提示词：风格模板 + 用户自定义提示词
	prompt := style.PromptTemplate
	if task.CustomPrompt != "" {
		prompt += " " + task.CustomPrompt
	}

	input, err := os.ReadFile(task.InputImage)
	if err != nil {
		s.fail(task.ID, fmt.Sprintf("读取输入图片失败: %v", err))
		return s.reload(task)
	}

	output, err := s.synth.GenerateImage(ctx, input, prompt)
	if err != nil {
		// 生成失败转为任务终态，不向上抛错，积分不退
		s.fail(task.ID, err.Error())
		return s.reload(task)
	}

	resultPath, err := s.saveResult(task.ID, output)
	if err != nil {
		s.fail(task.ID, fmt.Sprintf("保存生成结果失败: %v", err))
		return s.reload(task)
	}

	if err := s.tasks.MarkCompleted(task.ID, resultPath, time.Now()); err != nil {
		log.Printf("❌ 任务完成状态落库失败 task=%d: %v", task.ID, err)
	}
	return s.reload(task)
}

func (s *TaskService) fail(taskID uint, msg string) {
	if err := s.tasks.MarkFailed(taskID, msg); err != nil {
		log.Printf("❌ 任务失败状态落库失败 task=%d: %v", taskID, err)
	}
}

func (s *TaskService) saveResult(taskID uint, data []byte) (string, error) {
	resultDir := config.Get().Upload.ResultPath
	if resultDir == "" {
		resultDir = "results"
	}
	if err := os.MkdirAll(resultDir, 0755); err != nil {
		return "", err
	}
	resultPath := filepath.Join(resultDir, fmt.Sprintf("%d.png", taskID))
	if err := os.WriteFile(resultPath, data, 0644); err != nil {
		return "", err
	}
	return resultPath, nil
}

func (s *TaskService) reload(task *model.Task) *model.Task {
	fresh, err := s.tasks.FindByIDAndUser(task.ID, task.UserID)
	if err != nil {
		log.Printf("⚠️ 重新读取任务失败 task=%d: %v", task.ID, err)
		return task
	}
	return fresh
}

func mapDebitError(err error) error {
	if errors.Is(err, repository.ErrInsufficientCredit) || errors.Is(err, gorm.ErrRecordNotFound) {
		// 没有积分记录与余额不足同样处理
		return common.NewInsufficientCreditError("积分不足，请充值")
	}
	return common.NewInternalError("创建任务失败")
}
