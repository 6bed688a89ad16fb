package code

var (
	Failed  = NewError(0, lang{en: "Failed", zh_cn: "失败"})
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})

	SuccessCreate = NewSuss(2, lang{en: "Created successfully", zh_cn: "创建成功"})
	SuccessUpdate = NewSuss(3, lang{en: "Updated successfully", zh_cn: "更新成功"})
	SuccessDelete = NewSuss(4, lang{en: "Deleted successfully", zh_cn: "删除成功"})
	SuccessSync   = NewSuss(5, lang{en: "Sync finished", zh_cn: "同步完成"})
	// SuccessNoChanges 提交时工作区没有变化
	SuccessNoChanges = NewSuss(6, lang{en: "No changes to commit", zh_cn: "没有需要提交的变更"})
	SuccessAccepted  = NewSuss(7, lang{en: "Task accepted", zh_cn: "任务已受理"})

	ErrorServerInternal   = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorNotFound         = NewError(404, lang{en: "Resource not found", zh_cn: "资源不存在"})
	ErrorInvalidParams    = NewError(405, lang{en: "Invalid parameters", zh_cn: "参数错误"})
	ErrorInvalidAuthToken = NewError(406, lang{en: "Invalid auth token", zh_cn: "访问令牌无效"})
	ErrorTooManyRequests  = NewError(407, lang{en: "Too many requests", zh_cn: "请求过于频繁"})
	ErrorDBQuery          = NewError(408, lang{en: "Database query failed", zh_cn: "数据库查询失败"})

	ErrorRepositoryNotFound   = NewError(445, lang{en: "Repository not found", zh_cn: "仓库不存在"})
	ErrorRepositorySaveFailed = NewError(446, lang{en: "Failed to save repository", zh_cn: "仓库保存失败"})
	ErrorRepositoryBusy       = NewError(447, lang{en: "Repository is busy, please retry later", zh_cn: "仓库繁忙，请稍后重试"})
	ErrorGitOperation         = NewError(448, lang{en: "Git operation failed", zh_cn: "Git 操作失败"})
	ErrorGitClone             = NewError(449, lang{en: "Git clone failed", zh_cn: "Git 克隆失败"})
	ErrorGitBranch            = NewError(450, lang{en: "Git branch operation failed", zh_cn: "Git 分支操作失败"})
	ErrorFileNotFound         = NewError(451, lang{en: "File not found in working copy", zh_cn: "工作区中不存在该文件"})
	ErrorCredentialInvalid    = NewError(452, lang{en: "Repository credentials are invalid", zh_cn: "仓库凭据无效"})
	ErrorSyncFailed           = NewError(453, lang{en: "Sync failed", zh_cn: "同步失败"})
	ErrorSyncConflict         = NewError(454, lang{en: "Sync finished with conflicts", zh_cn: "同步存在冲突"})
	ErrorRemoteAPI            = NewError(455, lang{en: "Remote API request failed", zh_cn: "远程接口请求失败"})
)
