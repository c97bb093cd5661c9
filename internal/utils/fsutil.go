package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveToFile 将内容写入 basePath/relativePath,自动创建中间目录
func SaveToFile(content []byte, basePath, relativePath string) error {
	if len(content) == 0 || basePath == "" || relativePath == "" {
		return fmt.Errorf("写入参数不完整")
	}

	fullPath := filepath.Join(basePath, relativePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("创建目录失败 [%s]: %w", filepath.Dir(fullPath), err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return fmt.Errorf("写入文件失败 [%s]: %w", fullPath, err)
	}

	return nil
}
