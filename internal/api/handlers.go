package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/events"
	"github.com/lherron/wrkboard/internal/selectors"
	"github.com/lherron/wrkboard/internal/store"
)

type createBoardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerUserID string `json:"owner_user_id"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type positionRequest struct {
	Position *int `json:"position"`
}

type createTaskRequest struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Status         domain.TaskStatus   `json:"status"`
	Priority       domain.TaskPriority `json:"priority"`
	AssignedUserID *string             `json:"assigned_user_id"`
}

type addMemberRequest struct {
	UserID string            `json:"user_id"`
	Role   domain.MemberRole `json:"role"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"db":     s.store.DB().Path(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) board(c echo.Context) (string, error) {
	r, err := selectors.ResolveBoard(s.store.DB(), c.Param("board"))
	return r.UUID, err
}

func (s *Server) column(c echo.Context) (string, error) {
	r, err := selectors.ResolveColumn(s.store.DB(), "", c.Param("column"))
	return r.UUID, err
}

func (s *Server) task(c echo.Context) (string, error) {
	r, err := selectors.ResolveTask(s.store.DB(), c.Param("task"))
	return r.UUID, err
}

func (s *Server) handleBoardsList(c echo.Context) error {
	boards, err := s.store.Boards.List(c.Request().Header.Get(UserHeader))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"boards": boards})
}

func (s *Server) handleBoardsCreate(c echo.Context) error {
	var req createBoardRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	board, err := s.store.Boards.Create(s.user(c), store.CreateBoardParams{
		Name:        req.Name,
		Description: req.Description,
		OwnerUserID: req.OwnerUserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, board)
}

func (s *Server) handleBoardsGet(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	board, err := s.store.Boards.Get(boardUUID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, board)
}

func (s *Server) handleBoardsUpdate(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	etag, err := ifMatch(c)
	if err != nil {
		return err
	}
	var patch store.BoardPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	board, err := s.store.Boards.Update(s.user(c), boardUUID, patch, etag)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, board)
}

func (s *Server) handleBoardsDelete(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	etag, err := ifMatch(c)
	if err != nil {
		return err
	}
	if err := s.store.Boards.Delete(s.user(c), boardUUID, etag); err != nil {
		return err
	}
	s.columns.Evict(c.Request().Context(), boardUUID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleColumnsList(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	columns, err := s.columns.ListByBoard(c.Request().Context(), boardUUID)
	if err != nil {
		return err
	}
	if columns == nil {
		columns = []domain.Column{}
	}
	return c.JSON(http.StatusOK, map[string]any{"columns": columns})
}

func (s *Server) handleColumnsCreate(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	var req titleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	column, err := s.store.Columns.Create(s.user(c), boardUUID, req.Title)
	if err != nil {
		return err
	}
	s.columns.Evict(c.Request().Context(), boardUUID)
	return c.JSON(http.StatusCreated, column)
}

func (s *Server) handleColumnsGet(c echo.Context) error {
	columnUUID, err := s.column(c)
	if err != nil {
		return err
	}
	column, err := s.store.Columns.Get(columnUUID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, column)
}

func (s *Server) handleColumnsRename(c echo.Context) error {
	columnUUID, err := s.column(c)
	if err != nil {
		return err
	}
	etag, err := ifMatch(c)
	if err != nil {
		return err
	}
	var req titleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	column, err := s.store.Columns.Rename(s.user(c), columnUUID, req.Title, etag)
	if err != nil {
		return err
	}
	s.columns.Evict(c.Request().Context(), column.BoardUUID)
	return c.JSON(http.StatusOK, column)
}

func (s *Server) handleColumnsDelete(c echo.Context) error {
	columnUUID, err := s.column(c)
	if err != nil {
		return err
	}
	etag, err := ifMatch(c)
	if err != nil {
		return err
	}
	column, err := s.store.Columns.Get(columnUUID)
	if err != nil {
		return err
	}
	if err := s.store.Columns.Delete(s.user(c), columnUUID, etag); err != nil {
		return err
	}
	s.columns.Evict(c.Request().Context(), column.BoardUUID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleColumnsPosition(c echo.Context) error {
	columnUUID, err := s.column(c)
	if err != nil {
		return err
	}
	var req positionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Position == nil {
		return &domain.ValidationError{Field: "position", Message: "is required"}
	}
	column, err := s.store.Columns.UpdatePosition(s.user(c), columnUUID, *req.Position)
	if err != nil {
		return err
	}
	s.columns.Evict(c.Request().Context(), column.BoardUUID)
	return c.JSON(http.StatusOK, column)
}

func (s *Server) handleTasksCreate(c echo.Context) error {
	columnUUID, err := s.column(c)
	if err != nil {
		return err
	}
	var req createTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := s.store.Tasks.Create(s.user(c), columnUUID, store.CreateTaskParams{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		AssignedUserID: req.AssignedUserID,
	})
	if err != nil {
		return err
	}
	s.columns.Evict(c.Request().Context(), task.BoardUUID)
	return c.JSON(http.StatusCreated, task)
}

func (s *Server) handleTasksGet(c echo.Context) error {
	taskUUID, err := s.task(c)
	if err != nil {
		return err
	}
	task, err := s.store.Tasks.Get(taskUUID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleTasksUpdate(c echo.Context) error {
	taskUUID, err := s.task(c)
	if err != nil {
		return err
	}
	etag, err := ifMatch(c)
	if err != nil {
		return err
	}
	var patch domain.TaskPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	task, err := s.store.Tasks.Update(s.user(c), taskUUID, patch, etag)
	if err != nil {
		return err
	}
	s.columns.Evict(c.Request().Context(), task.BoardUUID)
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleTasksDelete(c echo.Context) error {
	taskUUID, err := s.task(c)
	if err != nil {
		return err
	}
	etag, err := ifMatch(c)
	if err != nil {
		return err
	}
	task, err := s.store.Tasks.Get(taskUUID)
	if err != nil {
		return err
	}
	if err := s.store.Tasks.Delete(s.user(c), taskUUID, etag); err != nil {
		return err
	}
	s.columns.Evict(c.Request().Context(), task.BoardUUID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMembersList(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	members, err := s.store.Members.List(boardUUID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"members": members})
}

func (s *Server) handleMembersAdd(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	var req addMemberRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	member, err := s.store.Members.Add(s.user(c), boardUUID, req.UserID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, member)
}

func (s *Server) handleMembersRemove(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	if err := s.store.Members.Remove(s.user(c), boardUUID, c.Param("user")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleEventsList(c echo.Context) error {
	boardUUID, err := s.board(c)
	if err != nil {
		return err
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	list, err := events.ListByBoard(s.store.DB().DB, boardUUID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"events": list})
}
