// Package util 提供通用工具函数
package util

import (
	"path/filepath"
	"strings"
)

// ValidatePath checks if a relative path is safe (no directory traversal, not absolute).
func ValidatePath(path string) bool {
	if path == "" || filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// SafeJoin 将相对路径拼接到 root 下，结果逃出 root 时返回 false
func SafeJoin(root, rel string) (string, bool) {
	if !ValidatePath(rel) {
		return "", false
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}
