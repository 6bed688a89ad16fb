// Package diff 基于 diffmatchpatch 提供文本差异的统计与展示
// 只用于描述差异，不做任何合并
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Summary 两段文本的字符级差异统计
type Summary struct {
	Identical bool `json:"identical"`
	Inserted  int  `json:"inserted"`
	Deleted   int  `json:"deleted"`
	Unchanged int  `json:"unchanged"`
}

// Summarize 统计从 before 到 after 的插入与删除字符数
func Summarize(before, after string) Summary {
	if before == after {
		return Summary{Identical: true, Unchanged: len([]rune(before))}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var s Summary
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Inserted += n
		case diffmatchpatch.DiffDelete:
			s.Deleted += n
		case diffmatchpatch.DiffEqual:
			s.Unchanged += n
		}
	}
	return s
}

// LineDiff 生成按行比较的差异文本，格式接近 unified diff：
// 以 "--- a/<path>" 与 "+++ b/<path>" 开头，删除行以 "-" 开头，新增行以 "+" 开头，未变化行以空格开头
// 两段文本相同时返回空字符串
func LineDiff(path, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	sb.WriteString("--- a/" + path + "\n")
	sb.WriteString("+++ b/" + path + "\n")

	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitLines(d.Text) {
			sb.WriteString(prefix + line + "\n")
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}
