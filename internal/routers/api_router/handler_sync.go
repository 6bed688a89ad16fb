package api_router

import (
	"context"

	"github.com/haierkeys/artifact-git-sync/internal/app"
	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/dto"
	pkgapp "github.com/haierkeys/artifact-git-sync/pkg/app"
	"github.com/haierkeys/artifact-git-sync/pkg/code"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// noSyncStateMessage 尚未同步过的仓库的状态说明
const noSyncStateMessage = "No sync state available"

// SyncHandler 同步引擎 API 路由处理器
type SyncHandler struct {
	*Handler
}

// NewSyncHandler 创建 SyncHandler 实例
func NewSyncHandler(a *app.App) *SyncHandler {
	return &SyncHandler{
		Handler: NewHandler(a),
	}
}

// connection 读取路径中的仓库连接，失败时已输出响应
func (h *SyncHandler) connection(c *gin.Context, method string) (*domain.RepositoryConnection, bool) {
	conn, err := h.App.RepositoryService.Connection(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failed(c, method, err)
		return nil, false
	}
	return conn, true
}

func outcomeCode(success, conflict bool) *code.Code {
	switch {
	case success:
		return code.SuccessSync
	case conflict:
		return code.ErrorSyncConflict
	default:
		return code.ErrorSyncFailed
	}
}

func (h *SyncHandler) respondOutcome(c *gin.Context, out domain.SyncOutcome) {
	cd := outcomeCode(out.Success, out.Conflict).WithData(out).WithRepository(c.Param("id"))
	if out.Error != "" {
		cd = cd.WithDetails(out.Error)
	}
	pkgapp.NewResponse(c).ToResponse(cd)
}

func (h *SyncHandler) respondBulk(c *gin.Context, out *domain.BulkOutcome) {
	cd := outcomeCode(out.Success, out.Conflicts > 0 && out.Failed == 0).WithData(out).WithRepository(c.Param("id"))
	if len(out.Errors) > 0 {
		cd = cd.WithDetails(out.Errors...)
	}
	pkgapp.NewResponse(c).ToResponse(cd)
}

// ExportArtifact 导出单个制品
// @Summary Export one artifact
// @Tags Sync
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.ExportArtifactRequest true "Artifact"
// @Success 200 {object} pkgapp.Res{data=domain.SyncOutcome} "Success"
// @Router /api/repositories/{id}/export [post]
func (h *SyncHandler) ExportArtifact(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ExportArtifactRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}
	h.exportArtifact(c, params.ArtifactID, domain.ArtifactKind(params.Type), domain.NamingPolicy(params.Naming))
}

// ExportWorkflow 导出单个工作流
// @Summary Export one workflow
// @Tags Sync
// @Param id path string true "Repository ID"
// @Param artifactId path string true "Workflow ID"
// @Param naming query string false "Naming policy"
// @Success 200 {object} pkgapp.Res{data=domain.SyncOutcome} "Success"
// @Router /api/repositories/{id}/workflows/{artifactId}/export [post]
func (h *SyncHandler) ExportWorkflow(c *gin.Context) {
	h.exportArtifact(c, c.Param("artifactId"), domain.KindWorkflow, domain.NamingPolicy(c.Query("naming")))
}

// ExportApplication 导出单个应用
// @Summary Export one application
// @Tags Sync
// @Param id path string true "Repository ID"
// @Param artifactId path string true "Application ID"
// @Param naming query string false "Naming policy"
// @Success 200 {object} pkgapp.Res{data=domain.SyncOutcome} "Success"
// @Router /api/repositories/{id}/applications/{artifactId}/export [post]
func (h *SyncHandler) ExportApplication(c *gin.Context) {
	h.exportArtifact(c, c.Param("artifactId"), domain.KindApplication, domain.NamingPolicy(c.Query("naming")))
}

func (h *SyncHandler) exportArtifact(c *gin.Context, artifactID string, kind domain.ArtifactKind, policy domain.NamingPolicy) {
	if policy != "" && !policy.Valid() {
		pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidParams.WithDetails("naming must be one of id, name, id-name"))
		return
	}
	conn, ok := h.connection(c, "SyncHandler.ExportArtifact")
	if !ok {
		return
	}
	h.respondOutcome(c, h.App.SyncService.ExportArtifact(c.Request.Context(), conn, artifactID, kind, policy))
}

// ExportAll 导出全部制品
// @Summary Export all artifacts
// @Tags Sync
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.ExportAllRequest false "Options"
// @Success 200 {object} pkgapp.Res{data=domain.BulkOutcome} "Success"
// @Router /api/repositories/{id}/export-all [post]
func (h *SyncHandler) ExportAll(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ExportAllRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}
	conn, ok := h.connection(c, "SyncHandler.ExportAll")
	if !ok {
		return
	}
	h.respondBulk(c, h.App.SyncService.ExportAll(c.Request.Context(), conn, domain.NamingPolicy(params.Naming)))
}

// ImportArtifact 导入单个文件
// @Summary Import one file
// @Tags Sync
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.ImportArtifactRequest true "File"
// @Success 200 {object} pkgapp.Res{data=domain.SyncOutcome} "Success"
// @Router /api/repositories/{id}/import [post]
func (h *SyncHandler) ImportArtifact(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ImportArtifactRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}
	conn, ok := h.connection(c, "SyncHandler.ImportArtifact")
	if !ok {
		return
	}
	h.respondOutcome(c, h.App.SyncService.ImportArtifact(c.Request.Context(), conn, params.FilePath, dto.AutoMergeOrDefault(params.AutoMerge)))
}

// ImportAll 导入全部文件
// @Summary Import all files
// @Tags Sync
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.ImportAllRequest false "Options"
// @Success 200 {object} pkgapp.Res{data=domain.BulkOutcome} "Success"
// @Router /api/repositories/{id}/import-all [post]
func (h *SyncHandler) ImportAll(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ImportAllRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}
	conn, ok := h.connection(c, "SyncHandler.ImportAll")
	if !ok {
		return
	}
	h.respondBulk(c, h.App.SyncService.ImportAll(c.Request.Context(), conn, dto.AutoMergeOrDefault(params.AutoMerge)))
}

// Sync 整库同步，async=true 时提交到后台任务池并立即返回
// @Summary Sync repository
// @Tags Sync
// @Accept json
// @Param id path string true "Repository ID"
// @Param async query bool false "Run in background"
// @Param params body dto.SyncRepositoryRequest false "Direction"
// @Success 200 {object} pkgapp.Res{data=domain.RepositorySyncResult} "Success"
// @Router /api/repositories/{id}/sync [post]
func (h *SyncHandler) Sync(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.SyncRepositoryRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}
	direction := domain.SyncDirection(params.Direction)
	if direction == "" {
		direction = domain.DirectionBidirectional
	}

	conn, ok := h.connection(c, "SyncHandler.Sync")
	if !ok {
		return
	}

	if c.Query("async") == "true" {
		err := h.App.SubmitTaskAsync(context.WithoutCancel(c.Request.Context()), "sync#"+conn.ID, func(ctx context.Context) error {
			res, _ := h.App.SyncService.TriggerSync(ctx, conn, direction)
			if !res.Success {
				h.App.Logger().Warn("background sync failed",
					zap.String(logger.FieldRepositoryID, conn.ID),
					zap.String(logger.FieldError, res.Error))
			}
			return nil
		})
		if err != nil {
			h.failed(c, "SyncHandler.Sync", code.ErrorRepositoryBusy.WithDetails(err.Error()))
			return
		}
		response.ToResponse(code.SuccessAccepted.WithRepository(conn.ID))
		return
	}

	res, _ := h.App.SyncService.TriggerSync(c.Request.Context(), conn, direction)
	cd := code.SuccessSync
	if !res.Success {
		cd = code.ErrorSyncFailed.WithDetails(res.Error)
	}
	response.ToResponse(cd.WithData(res).WithRepository(conn.ID))
}

// SyncStatus 最近一次同步状态，未同步过时返回 pending
// @Summary Sync status
// @Tags Sync
// @Param id path string true "Repository ID"
// @Success 200 {object} pkgapp.Res{data=dto.SyncStatusDTO} "Success"
// @Router /api/repositories/{id}/sync-status [get]
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	conn, ok := h.connection(c, "SyncHandler.SyncStatus")
	if !ok {
		return
	}

	out := dto.SyncStatusDTO{RepositoryID: conn.ID}
	state, found := h.App.SyncService.GetSyncState(c.Request.Context(), conn.ID)
	if !found {
		out.Status = string(domain.SyncStatusPending)
		out.Message = noSyncStateMessage
	} else {
		out.Status = string(state.Status)
		out.Message = state.ErrorMessage
		out.State = state
	}
	response.ToResponse(code.Success.WithData(out))
}
