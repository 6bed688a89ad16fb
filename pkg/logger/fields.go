package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldRepositoryID 仓库 ID 字段
	FieldRepositoryID = "repositoryId"

	// FieldArtifactID 制品 ID 字段
	FieldArtifactID = "artifactId"

	// FieldKind 制品类型字段
	FieldKind = "kind"

	// FieldAction 操作类型字段
	FieldAction = "action"

	// FieldDirection 同步方向字段
	FieldDirection = "direction"

	// FieldPath 文件路径字段
	FieldPath = "path"

	// FieldBranch 分支字段
	FieldBranch = "branch"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldError 错误信息字段
	FieldError = "error"
)
