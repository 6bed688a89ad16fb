package util

import (
	"regexp"
	"strings"
)

var (
	repoURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`),
		regexp.MustCompile(`^git@[^\s:]+:[^\s]+$`),
		regexp.MustCompile(`^git://[^\s]+$`),
		regexp.MustCompile(`^ssh://[^\s]+$`),
		regexp.MustCompile(`^file://[^\s]+$`),
	}
	branchInvalidChars = regexp.MustCompile(`[ ~^:?*\[\\@{]`)
)

// IsValidRepositoryURL 校验 Git 仓库地址（http(s)、git@host:path、git://、ssh://、file://）
func IsValidRepositoryURL(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	for _, p := range repoURLPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// IsValidBranchName 校验分支名称
func IsValidBranchName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if branchInvalidChars.MatchString(name) {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".lock") {
		return false
	}
	return !strings.Contains(name, "..")
}
