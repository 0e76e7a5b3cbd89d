package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"audit-trail-service/internal/domain"
	"audit-trail-service/internal/service"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// ActorHeader carries the id of the user performing a request, or "system"
// for non-interactive callers.
const ActorHeader = "X-Actor-ID"

const defaultPageLimit = 20

type AuditTrailService interface {
	Search(ctx context.Context, params service.SearchParams) ([]*domain.AuditEntry, error)
	Export(ctx context.Context, params service.SearchParams, fn func(*domain.AuditEntry) error) error
	GetEntry(ctx context.Context, id int64) (*domain.AuditEntry, error)
	Stats(ctx context.Context, subjectType string) (map[domain.AuditKind]int64, error)
}

type Server struct {
	auditService AuditTrailService
	db           *sql.DB
}

func NewServer(auditService AuditTrailService, db *sql.DB) *Server {
	return &Server{
		auditService: auditService,
		db:           db,
	}
}

func (s *Server) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		log.WithField("error", err).Error("Health check failed: database is down")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection error",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// executionContext reads the acting user from the request.
func executionContext(c echo.Context) (service.ExecutionContext, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(ActorHeader))
	switch {
	case raw == "":
		return service.Anonymous(), nil
	case strings.EqualFold(raw, "system"):
		return service.AsSystem(), nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return service.ExecutionContext{}, &domain.ValidationError{Messages: []string{ActorHeader + " must be a positive integer or \"system\""}}
	}
	return service.AsActor(id), nil
}

func pageParams(c echo.Context) (limit, offset int) {
	limit = defaultPageLimit
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}

func handleAuditError(err error) (int, string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound, "audit trail entry not found"
	case errors.Is(err, domain.ErrInvalidUUID):
		return http.StatusBadRequest, "invalid request"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{
		"error": msg,
	})
}

// respondError writes err as a JSON error using mapErr to pick the status.
func respondError(c echo.Context, err error, mapErr func(error) (int, string)) error {
	status, msg := mapErr(err)
	return errorJSON(c, status, msg)
}

func searchParams(c echo.Context) service.SearchParams {
	limit, offset := pageParams(c)
	return service.SearchParams{
		ID:          c.QueryParam("id"),
		SubjectType: c.QueryParam("subject_type"),
		HappenedAt:  c.QueryParam("happened_at"),
		ActorID:     c.QueryParam("actor_id"),
		Kind:        c.QueryParam("kind"),
		SubjectKey:  c.QueryParam("subject_key"),
		Changes:     c.QueryParam("changes"),
		GroupByType: c.QueryParam("group_by_type") == "true",
		Limit:       limit,
		Offset:      offset,
	}
}

// SearchEntries serves GET /api/audit-entries. With format=ndjson every
// matching entry is streamed, one JSON document per line.
func (s *Server) SearchEntries(c echo.Context) error {
	params := searchParams(c)

	if c.QueryParam("format") == "ndjson" {
		return s.exportEntries(c, params)
	}

	entries, err := s.auditService.Search(c.Request().Context(), params)
	if err != nil {
		log.WithError(err).Error("Failed to search audit trail entries")
		return respondError(c, err, handleAuditError)
	}

	return c.JSON(http.StatusOK, entries)
}

func (s *Server) exportEntries(c echo.Context, params service.SearchParams) error {
	res := c.Response()
	enc := json.NewEncoder(res)
	started := false

	err := s.auditService.Export(c.Request().Context(), params, func(e *domain.AuditEntry) error {
		if !started {
			res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
			res.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(e); err != nil {
			return err
		}
		res.Flush()
		return nil
	})

	if err != nil {
		log.WithError(err).Error("Failed to export audit trail entries")
		if started {
			return nil
		}
		return respondError(c, err, handleAuditError)
	}

	if !started {
		res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
		res.WriteHeader(http.StatusOK)
	}
	return nil
}

func (s *Server) GetEntry(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	entry, err := s.auditService.GetEntry(c.Request().Context(), id)
	if err != nil {
		log.WithError(err).WithField("entry_id", id).Warn("Failed to get audit trail entry")
		return respondError(c, err, handleAuditError)
	}

	return c.JSON(http.StatusOK, entry)
}

// EntryStats serves GET /api/audit-entries/stats.
func (s *Server) EntryStats(c echo.Context) error {
	counts, err := s.auditService.Stats(c.Request().Context(), c.QueryParam("subject_type"))
	if err != nil {
		log.WithError(err).Error("Failed to count audit trail entries")
		return respondError(c, err, handleAuditError)
	}

	return c.JSON(http.StatusOK, counts)
}
