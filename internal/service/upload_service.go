package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/liaosimin/pictora/internal/config"
	"github.com/liaosimin/pictora/internal/utils"

	"github.com/google/uuid"
)

// ValidateImageFile 验证上传的图片文件（大小、后缀、内容）
// 返回:
//   - bool: 是否合法
//   - string: 文件扩展名 (小写, 如 .jpg)
//   - error: 错误信息或原因
func ValidateImageFile(file *multipart.FileHeader) (bool, string, error) {
	cfg := config.Get().Upload

	// 检查文件大小
	maxSizeMB := cfg.MaxSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if file.Size > int64(maxSizeMB)*1024*1024 {
		return false, "", fmt.Errorf("文件大小不能超过 %dMB", maxSizeMB)
	}

	// 检查文件扩展名
	allowExtsStr := cfg.AllowExts
	if allowExtsStr == "" {
		allowExtsStr = ".jpg,.jpeg,.png,.webp"
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		return false, "", errors.New("无法识别文件类型")
	}

	allowed := false
	for _, allowExt := range strings.Split(allowExtsStr, ",") {
		if strings.TrimSpace(strings.ToLower(allowExt)) == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, ext, fmt.Errorf("不支持的文件类型: %s", ext)
	}

	// 检查文件内容 (Magic Bytes)
	src, err := file.Open()
	if err != nil {
		return false, ext, errors.New("无法打开上传的文件")
	}
	defer func() { _ = src.Close() }()

	if valid, msg := utils.ValidateImageContent(src, ext); !valid {
		return false, ext, errors.New(msg)
	}

	return true, ext, nil
}

// SaveUploadedImage 把上传原图保存到上传目录，返回保存后的相对路径
func SaveUploadedImage(file *multipart.FileHeader) (string, error) {
	valid, ext, err := ValidateImageFile(file)
	if !valid {
		return "", err
	}

	uploadRoot := config.Get().Upload.Path
	if uploadRoot == "" {
		uploadRoot = "uploads"
	}
	if err := os.MkdirAll(uploadRoot, 0755); err != nil {
		return "", errors.New("系统错误: 无法创建存储目录")
	}

	// 生成唯一文件名
	newFilename := uuid.New().String() + ext
	dst := filepath.Join(uploadRoot, newFilename)

	src, err := file.Open()
	if err != nil {
		return "", errors.New("无法打开上传的文件")
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return "", errors.New("系统错误: 无法保存文件")
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, src); err != nil {
		_ = os.Remove(dst)
		return "", errors.New("系统错误: 保存文件失败")
	}

	return dst, nil
}
