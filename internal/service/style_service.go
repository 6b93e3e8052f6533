package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/liaosimin/pictora/internal/common"
	"github.com/liaosimin/pictora/internal/model"
	"github.com/liaosimin/pictora/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const styleCacheTTL = 5 * time.Minute

type StyleService struct {
	styles      repository.StyleStore
	cache       *redis.Client // 可选，未启用 Redis 时为 nil
	cachePrefix string
}

func NewStyleService(styles repository.StyleStore, cache *redis.Client, cachePrefix string) *StyleService {
	if cachePrefix == "" {
		cachePrefix = "pictora"
	}
	return &StyleService{styles: styles, cache: cache, cachePrefix: cachePrefix}
}

func (s *StyleService) cacheKey(parts ...string) string {
	return s.cachePrefix + ":" + strings.Join(parts, ":")
}

// List 按人气倒序返回风格，未过滤、首页的结果走 Redis 缓存
func (s *StyleService) List(categoryID *uint, limit, offset int) ([]model.Style, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	cacheable := s.cache != nil && categoryID == nil && offset == 0
	key := s.cacheKey("styles", "top")

	if cacheable {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var styles []model.Style
			if json.Unmarshal(data, &styles) == nil && len(styles) >= limit {
				return styles[:limit], nil
			}
		}
	}

	styles, err := s.styles.List(categoryID, limit, offset)
	if err != nil {
		return nil, common.NewInternalError("查询风格列表失败")
	}

	if cacheable {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if data, err := json.Marshal(styles); err == nil {
			_ = s.cache.Set(ctx, key, data, styleCacheTTL).Err()
		}
	}

	return styles, nil
}

func (s *StyleService) Categories(limit, offset int) ([]model.StyleCategory, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	categories, err := s.styles.ListCategories(limit, offset)
	if err != nil {
		return nil, common.NewInternalError("查询风格分类失败")
	}
	return categories, nil
}

func (s *StyleService) Recent(userID uint, limit int) ([]model.Style, error) {
	if limit <= 0 {
		limit = 10
	}
	styles, err := s.styles.ListRecentByUser(userID, limit)
	if err != nil {
		return nil, common.NewInternalError("查询最近使用风格失败")
	}
	return styles, nil
}

// Create 新增风格（仅管理员，权限在路由层校验）
func (s *StyleService) Create(style *model.Style) error {
	if style.Name == "" || style.PromptTemplate == "" {
		return common.NewValidationError("风格名称和提示词模板不能为空")
	}
	if err := s.styles.Create(style); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.NewConflictError("风格名称已存在")
		}
		log.Printf("❌ 创建风格失败: %v", err)
		return common.NewInternalError("创建风格失败")
	}

	// 新风格上线后让热门列表缓存失效
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.cache.Del(ctx, s.cacheKey("styles", "top")).Err()
	}
	return nil
}
