package util

import (
	"path/filepath"
	"strings"
)

// Within 判断 p 清理后是否位于 root 之下，p 等于 root 时返回 false。
func Within(root, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
