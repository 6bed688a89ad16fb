package domain

import (
	"time"
)

// Signature 提交作者
type Signature struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type PullResult struct {
	Updated   bool   `json:"updated"`
	BeforeRef string `json:"beforeRef"`
	AfterRef  string `json:"afterRef"`
}

type CommitResult struct {
	Hash string `json:"commitHash"`
}

type PushResult struct {
	Branch string `json:"branch"`
}

// BranchInfo 分支列表项
type BranchInfo struct {
	Name      string `json:"name"`
	IsCurrent bool   `json:"isCurrent"`
	IsRemote  bool   `json:"isRemote"`
	ShortHash string `json:"shortHash"`
	Message   string `json:"message"`
}

// CommitInfo 提交历史项，Message 仅包含首行
type CommitInfo struct {
	Hash        string    `json:"hash"`
	ShortHash   string    `json:"shortHash"`
	Message     string    `json:"message"`
	Author      string    `json:"author"`
	CommittedAt time.Time `json:"committedAt"`
}

// RepoStatus 工作区状态
type RepoStatus struct {
	Branch         string      `json:"branch"`
	Dirty          bool        `json:"dirty"`
	UntrackedFiles []string    `json:"untrackedFiles"`
	ModifiedFiles  []string    `json:"modifiedFiles"`
	StagedFiles    []string    `json:"stagedFiles"`
	LastCommit     *CommitInfo `json:"lastCommit,omitempty"`
}

// ExportedFiles 工作区中已导出的制品文件（相对路径，已排序）
type ExportedFiles struct {
	Workflows    []string `json:"workflows"`
	Applications []string `json:"applications"`
}
