package api_router

import (
	"github.com/haierkeys/artifact-git-sync/internal/app"
	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/internal/dto"
	pkgapp "github.com/haierkeys/artifact-git-sync/pkg/app"
	"github.com/haierkeys/artifact-git-sync/pkg/code"
	apperrors "github.com/haierkeys/artifact-git-sync/pkg/errors"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RepositoryHandler 仓库连接管理与 Git 操作 API 路由处理器
type RepositoryHandler struct {
	*Handler
}

// NewRepositoryHandler 创建 RepositoryHandler 实例
func NewRepositoryHandler(a *app.App) *RepositoryHandler {
	return &RepositoryHandler{
		Handler: NewHandler(a),
	}
}

func invalidParams(response *pkgapp.Response, errs pkgapp.ValidErrors) {
	response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
}

// failed 记录错误并输出统一错误响应
func (h *Handler) failed(c *gin.Context, method string, err error) {
	h.logError(c.Request.Context(), method, err, zap.String(logger.FieldRepositoryID, c.Param("id")))
	apperrors.ErrorResponse(c, err)
}

// List 获取全部仓库连接
// @Summary List repositories
// @Tags Repository
// @Produce json
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=[]dto.RepositoryDTO}} "Success"
// @Router /api/repositories [get]
func (h *RepositoryHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	list, err := h.App.RepositoryService.List(c.Request.Context())
	if err != nil {
		h.failed(c, "RepositoryHandler.List", err)
		return
	}
	response.ToResponseList(code.Success, list, len(list))
}

// Create 创建仓库连接
// @Summary Create repository
// @Tags Repository
// @Accept json
// @Produce json
// @Param params body dto.RepositoryCreateRequest true "Repository"
// @Success 200 {object} pkgapp.Res{data=dto.RepositoryDTO} "Success"
// @Router /api/repositories [post]
func (h *RepositoryHandler) Create(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.RepositoryCreateRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}

	repo, err := h.App.RepositoryService.Create(c.Request.Context(), params)
	if err != nil {
		h.failed(c, "RepositoryHandler.Create", err)
		return
	}
	response.ToResponse(code.SuccessCreate.WithData(repo))
}

// Get 获取仓库连接
// @Summary Get repository
// @Tags Repository
// @Produce json
// @Param id path string true "Repository ID"
// @Success 200 {object} pkgapp.Res{data=dto.RepositoryDTO} "Success"
// @Router /api/repositories/{id} [get]
func (h *RepositoryHandler) Get(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	repo, err := h.App.RepositoryService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failed(c, "RepositoryHandler.Get", err)
		return
	}
	response.ToResponse(code.Success.WithData(repo))
}

// Update 更新仓库连接，地址或分支变化时重建工作区
// @Summary Update repository
// @Tags Repository
// @Accept json
// @Produce json
// @Param id path string true "Repository ID"
// @Param params body dto.RepositoryUpdateRequest true "Repository"
// @Success 200 {object} pkgapp.Res{data=dto.RepositoryDTO} "Success"
// @Router /api/repositories/{id} [put]
func (h *RepositoryHandler) Update(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.RepositoryUpdateRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}
	params.ID = c.Param("id")

	repo, err := h.App.RepositoryService.Update(c.Request.Context(), params)
	if err != nil {
		h.failed(c, "RepositoryHandler.Update", err)
		return
	}
	response.ToResponse(code.SuccessUpdate.WithData(repo))
}

// Delete 删除仓库连接、工作区与同步状态
// @Summary Delete repository
// @Tags Repository
// @Param id path string true "Repository ID"
// @Success 200 {object} pkgapp.Res "Success"
// @Router /api/repositories/{id} [delete]
func (h *RepositoryHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	if err := h.App.RepositoryService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.failed(c, "RepositoryHandler.Delete", err)
		return
	}
	response.ToResponse(code.SuccessDelete.WithRepository(c.Param("id")))
}

// Clone 克隆或打开工作区
// @Summary Clone repository
// @Tags Git
// @Param id path string true "Repository ID"
// @Success 200 {object} pkgapp.Res{data=dto.RepositoryDTO} "Success"
// @Router /api/repositories/{id}/clone [post]
func (h *RepositoryHandler) Clone(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	repo, err := h.App.RepositoryService.Clone(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failed(c, "RepositoryHandler.Clone", err)
		return
	}
	response.ToResponse(code.Success.WithData(repo))
}

// Status 工作区状态
// @Summary Working copy status
// @Tags Git
// @Param id path string true "Repository ID"
// @Success 200 {object} pkgapp.Res{data=domain.RepoStatus} "Success"
// @Router /api/repositories/{id}/status [get]
func (h *RepositoryHandler) Status(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	st, err := h.App.RepositoryService.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failed(c, "RepositoryHandler.Status", err)
		return
	}
	response.ToResponse(code.Success.WithData(st))
}

// Commit 暂存全部变更并提交，没有变更时返回 SuccessNoChanges
// @Summary Commit all changes
// @Tags Git
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.CommitRequest true "Commit"
// @Success 200 {object} pkgapp.Res{data=domain.CommitResult} "Success"
// @Router /api/repositories/{id}/commit [post]
func (h *RepositoryHandler) Commit(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.CommitRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}

	res, err := h.App.RepositoryService.Commit(c.Request.Context(), c.Param("id"), params)
	if domain.IsNoChanges(err) {
		response.ToResponse(code.SuccessNoChanges.WithRepository(c.Param("id")))
		return
	}
	if err != nil {
		h.failed(c, "RepositoryHandler.Commit", err)
		return
	}
	response.ToResponse(code.Success.WithData(res))
}

// Push 推送到远程
// @Summary Push
// @Tags Git
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.BranchRequest false "Branch"
// @Success 200 {object} pkgapp.Res{data=domain.PushResult} "Success"
// @Router /api/repositories/{id}/push [post]
func (h *RepositoryHandler) Push(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BranchRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}

	res, err := h.App.RepositoryService.Push(c.Request.Context(), c.Param("id"), params.Branch)
	if err != nil {
		h.failed(c, "RepositoryHandler.Push", err)
		return
	}
	response.ToResponse(code.Success.WithData(res))
}

// Pull 从远程拉取
// @Summary Pull
// @Tags Git
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.BranchRequest false "Branch"
// @Success 200 {object} pkgapp.Res{data=domain.PullResult} "Success"
// @Router /api/repositories/{id}/pull [post]
func (h *RepositoryHandler) Pull(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BranchRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}

	res, err := h.App.RepositoryService.Pull(c.Request.Context(), c.Param("id"), params.Branch)
	if err != nil {
		h.failed(c, "RepositoryHandler.Pull", err)
		return
	}
	response.ToResponse(code.Success.WithData(res))
}

// Branches 列出本地与远程分支
// @Summary List branches
// @Tags Git
// @Param id path string true "Repository ID"
// @Success 200 {object} pkgapp.Res{data=[]domain.BranchInfo} "Success"
// @Router /api/repositories/{id}/branches [get]
func (h *RepositoryHandler) Branches(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	branches, err := h.App.RepositoryService.Branches(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failed(c, "RepositoryHandler.Branches", err)
		return
	}
	response.ToResponseList(code.Success, branches, len(branches))
}

// CreateBranch 新建分支
// @Summary Create branch
// @Tags Git
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.CreateBranchRequest true "Branch"
// @Success 200 {object} pkgapp.Res "Success"
// @Router /api/repositories/{id}/branches [post]
func (h *RepositoryHandler) CreateBranch(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.CreateBranchRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}

	if err := h.App.RepositoryService.CreateBranch(c.Request.Context(), c.Param("id"), params); err != nil {
		h.failed(c, "RepositoryHandler.CreateBranch", err)
		return
	}
	response.ToResponse(code.SuccessCreate.WithRepository(c.Param("id")))
}

// Checkout 切换分支
// @Summary Checkout branch
// @Tags Git
// @Accept json
// @Param id path string true "Repository ID"
// @Param params body dto.BranchRequest true "Branch"
// @Success 200 {object} pkgapp.Res "Success"
// @Router /api/repositories/{id}/checkout [post]
func (h *RepositoryHandler) Checkout(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BranchRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}
	if params.Branch == "" {
		response.ToResponse(code.ErrorInvalidParams.WithDetails("branch is required"))
		return
	}

	if err := h.App.RepositoryService.CheckoutBranch(c.Request.Context(), c.Param("id"), params.Branch); err != nil {
		h.failed(c, "RepositoryHandler.Checkout", err)
		return
	}
	response.ToResponse(code.Success.WithRepository(c.Param("id")))
}

// History 提交历史
// @Summary Commit history
// @Tags Git
// @Param id path string true "Repository ID"
// @Param limit query int false "Limit"
// @Success 200 {object} pkgapp.Res{data=[]domain.CommitInfo} "Success"
// @Router /api/repositories/{id}/history [get]
func (h *RepositoryHandler) History(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.HistoryRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}

	history, err := h.App.RepositoryService.History(c.Request.Context(), c.Param("id"), params.Limit)
	if err != nil {
		h.failed(c, "RepositoryHandler.History", err)
		return
	}
	response.ToResponseList(code.Success, history, len(history))
}

// Diff 两个引用之间或工作区的差异
// @Summary Diff
// @Tags Git
// @Param id path string true "Repository ID"
// @Param ref1 query string false "Ref 1"
// @Param ref2 query string false "Ref 2"
// @Success 200 {object} pkgapp.Res "Success"
// @Router /api/repositories/{id}/diff [get]
func (h *RepositoryHandler) Diff(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.DiffRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		invalidParams(response, errs)
		return
	}

	d, err := h.App.RepositoryService.Diff(c.Request.Context(), c.Param("id"), params.Ref1, params.Ref2)
	if err != nil {
		h.failed(c, "RepositoryHandler.Diff", err)
		return
	}
	response.ToResponse(code.Success.WithData(gin.H{"diff": d}))
}

// Files 工作区中已导出的制品文件
// @Summary Exported files
// @Tags Git
// @Param id path string true "Repository ID"
// @Success 200 {object} pkgapp.Res{data=domain.ExportedFiles} "Success"
// @Router /api/repositories/{id}/files [get]
func (h *RepositoryHandler) Files(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	files, err := h.App.RepositoryService.ExportedFiles(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failed(c, "RepositoryHandler.Files", err)
		return
	}
	response.ToResponse(code.Success.WithData(files))
}
