package domain

import (
	"errors"
	"fmt"
)

// ErrRepositoryNotFound 仓库连接不存在
var ErrRepositoryNotFound = errors.New("repository not found")

// ErrSyncStateNotFound 仓库尚无同步状态
var ErrSyncStateNotFound = errors.New("sync state not found")

// CloneError 克隆或打开工作区失败
type CloneError struct {
	URL string
	Err error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone %s: %v", e.URL, e.Err)
}

func (e *CloneError) Unwrap() error { return e.Err }

// PullError 拉取失败
type PullError struct {
	Branch string
	Err    error
}

func (e *PullError) Error() string {
	if e.Branch == "" {
		return fmt.Sprintf("pull: %v", e.Err)
	}
	return fmt.Sprintf("pull %s: %v", e.Branch, e.Err)
}

func (e *PullError) Unwrap() error { return e.Err }

// PushError 推送被拒绝或失败
type PushError struct {
	Branch string
	Err    error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push %s: %v", e.Branch, e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }

// BranchError 分支创建或切换失败
type BranchError struct {
	Op     string
	Branch string
	Err    error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("%s branch %q: %v", e.Op, e.Branch, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }

// NoChangesError 工作区干净，没有可提交的内容
type NoChangesError struct{}

func (e *NoChangesError) Error() string { return "no changes to commit" }

// InvalidRepositoryError 工作区路径不可用且无法清除
type InvalidRepositoryError struct {
	Path string
	Err  error
}

func (e *InvalidRepositoryError) Error() string {
	return fmt.Sprintf("invalid repository at %s: %v", e.Path, e.Err)
}

func (e *InvalidRepositoryError) Unwrap() error { return e.Err }

// FileNotFoundError 文件不存在或越出工作区根目录
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// RemoteNotFoundError 远程不存在该制品
type RemoteNotFoundError struct {
	Kind ArtifactKind
	ID   string
}

func (e *RemoteNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found on remote", e.Kind.Label(), e.ID)
}

// RemoteAPIError 远程接口返回非 2xx 或传输失败（StatusCode 为 0）
type RemoteAPIError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	if e.Body == "" {
		if e.Err != nil {
			return fmt.Sprintf("remote %s: status %d: %v", e.Op, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("remote %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("remote %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *RemoteAPIError) Unwrap() error { return e.Err }

// ConflictError 远程已存在且未开启自动合并
type ConflictError struct {
	Kind ArtifactKind
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s exists, manual merge required", e.Kind.Label())
}

// IsNoChanges 判断是否为无变更错误
func IsNoChanges(err error) bool {
	var target *NoChangesError
	return errors.As(err, &target)
}

// IsRemoteNotFound 判断远程制品是否不存在
func IsRemoteNotFound(err error) bool {
	var target *RemoteNotFoundError
	return errors.As(err, &target)
}
