// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

// VersionDTO 版本信息 API 响应对象
type VersionDTO struct {
	Name      string `json:"name"`      // 应用名称
	Version   string `json:"version"`   // 当前版本
	GitTag    string `json:"gitTag"`    // Git 标签
	BuildTime string `json:"buildTime"` // 构建时间
}

// HealthDTO 健康检查响应
type HealthDTO struct {
	Status   string  `json:"status"`   // healthy 或 unhealthy
	Version  string  `json:"version"`  // 服务版本号
	Uptime   float64 `json:"uptime"`   // 运行时间（秒）
	Database string  `json:"database"` // connected 或 error
}
