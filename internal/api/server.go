// Package api serves the board store over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/store"
)

const (
	// TokenHeader carries the API token when Authorization is not used.
	TokenHeader = "X-Wrkboard-Token"
	// UserHeader names the acting user for mutations.
	UserHeader = "X-Wrkboard-User"
)

// Options configures a Server.
type Options struct {
	Token       string
	DefaultUser string
	Redis       *redis.Client
	CacheTTL    time.Duration
	Logger      *log.Logger
}

// Server is the HTTP front of a Store.
type Server struct {
	store       *store.Store
	columns     *ColumnCache
	token       string
	defaultUser string
	logger      *log.Logger
	echo        *echo.Echo
}

// New builds a server with every route registered.
func New(s *store.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	srv := &Server{
		store:       s,
		columns:     NewColumnCache(s.Columns, opts.Redis, opts.CacheTTL),
		token:       opts.Token,
		defaultUser: opts.DefaultUser,
		logger:      logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = srv.handleError
	e.Use(middleware.Recover())
	e.Use(srv.requestLogger)
	e.Use(srv.withAuth)
	srv.echo = e
	srv.registerRoutes(e)
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) registerRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")
	v1.GET("/health", s.handleHealth)

	v1.GET("/boards", s.handleBoardsList)
	v1.POST("/boards", s.handleBoardsCreate)
	v1.GET("/boards/:board", s.handleBoardsGet)
	v1.PATCH("/boards/:board", s.handleBoardsUpdate)
	v1.DELETE("/boards/:board", s.handleBoardsDelete)
	v1.GET("/boards/:board/columns", s.handleColumnsList)
	v1.POST("/boards/:board/columns", s.handleColumnsCreate)
	v1.GET("/boards/:board/members", s.handleMembersList)
	v1.POST("/boards/:board/members", s.handleMembersAdd)
	v1.DELETE("/boards/:board/members/:user", s.handleMembersRemove)
	v1.GET("/boards/:board/events", s.handleEventsList)

	v1.GET("/columns/:column", s.handleColumnsGet)
	v1.PATCH("/columns/:column", s.handleColumnsRename)
	v1.DELETE("/columns/:column", s.handleColumnsDelete)
	v1.PUT("/columns/:column/position", s.handleColumnsPosition)
	v1.POST("/columns/:column/tasks", s.handleTasksCreate)

	v1.GET("/tasks/:task", s.handleTasksGet)
	v1.PATCH("/tasks/:task", s.handleTasksUpdate)
	v1.DELETE("/tasks/:task", s.handleTasksDelete)
}

func (s *Server) withAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.token == "" {
			return next(c)
		}
		token := c.Request().Header.Get(echo.HeaderAuthorization)
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			token = c.Request().Header.Get(TokenHeader)
		}
		if token != s.token {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		entry := s.logger.WithFields(log.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"status":   c.Response().Status,
			"duration": time.Since(start).String(),
		})
		if c.Response().Status >= http.StatusInternalServerError {
			entry.WithError(err).Error("request failed")
		} else {
			entry.Debug("request")
		}
		return nil
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusOf(err)
	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]any{"message": message})
}

func statusOf(err error) int {
	var (
		he         *echo.HTTPError
		validation *domain.ValidationError
		invalid    *domain.InvalidMoveError
		etag       *domain.ETagMismatchError
	)
	switch {
	case errors.As(err, &he):
		return he.Code
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &etag):
		return http.StatusConflict
	case domain.IsForbidden(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// user returns the acting user of a request.
func (s *Server) user(c echo.Context) string {
	if u := strings.TrimSpace(c.Request().Header.Get(UserHeader)); u != "" {
		return u
	}
	return s.defaultUser
}

// ifMatch reads the If-Match header; zero means unconditional.
func ifMatch(c echo.Context) (int64, error) {
	raw := strings.Trim(c.Request().Header.Get("If-Match"), `" `)
	if raw == "" {
		return 0, nil
	}
	etag, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid If-Match header")
	}
	return etag, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
