// Package handler maps HTTP requests onto the services and service errors
// onto status codes. Handlers stay thin; policy lives in the services.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/calendar"
	"classtrack/internal/community"
	"classtrack/internal/config"
	"classtrack/internal/export"
	"classtrack/internal/metrics"
	"classtrack/internal/queue"
	"classtrack/internal/schedule"
	"classtrack/internal/session"
	"classtrack/internal/sessiontoken"
	"classtrack/internal/user"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	cfg      config.App
	users    *user.Service
	schedule *schedule.Service
	sessions *session.Service
	marks    *attendance.Service
	marksLog *attendance.PostgresRepository
	board    *community.Service
	staging  *export.Staging
	q        queue.Queue
}

// New wires a handler.
func New(
	cfg config.App,
	users *user.Service,
	sched *schedule.Service,
	sessions *session.Service,
	marks *attendance.Service,
	marksLog *attendance.PostgresRepository,
	board *community.Service,
	staging *export.Staging,
	q queue.Queue,
) *Handler {
	return &Handler{
		cfg:      cfg,
		users:    users,
		schedule: sched,
		sessions: sessions,
		marks:    marks,
		marksLog: marksLog,
		board:    board,
		staging:  staging,
		q:        q,
	}
}

// ---------- auth ----------

func (h *Handler) Register(c *gin.Context) {
	var in user.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	u, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrMissingFields),
			errors.Is(err, user.ErrInvalidEmail),
			errors.Is(err, user.ErrPasswordTooShort),
			errors.Is(err, user.ErrEmailExists),
			errors.Is(err, user.ErrBadBatchYear):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			serverError(c, "register", err)
		}
		return
	}
	h.respondWithToken(c, u)
}

func (h *Handler) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email or password"})
		return
	}
	u, err := h.users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		serverError(c, "login", err)
		return
	}
	h.respondWithToken(c, u)
}

func (h *Handler) respondWithToken(c *gin.Context, u user.User) {
	token, err := auth.Issue(u.ID, u.Role, u.Name, u.RegNo, u.BatchID, h.cfg.JWTSecret, h.cfg.UserTokenTTL)
	if err != nil {
		serverError(c, "token issue", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":      u.ID,
			"name":    u.Name,
			"email":   u.Email,
			"role":    u.Role,
			"batchId": u.BatchID,
			"regNo":   u.RegNo,
		},
	})
}

func (h *Handler) Me(c *gin.Context) {
	claims := auth.FromContext(c)
	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":      claims.UserID,
		"role":    claims.Role,
		"name":    claims.Name,
		"regNo":   claims.RegNo,
		"batchId": claims.BatchID,
	}})
}

// ---------- batches & users ----------

func (h *Handler) ListBatches(c *gin.Context) {
	batches, err := h.users.Batches(c.Request.Context())
	if err != nil {
		serverError(c, "list batches", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (h *Handler) UpsertBatch(c *gin.Context) {
	var in struct {
		Number string `json:"number"`
		Name   string `json:"name"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "number required"})
		return
	}
	b, err := h.users.UpsertBatch(c.Request.Context(), in.Number, in.Name)
	if err != nil {
		if errors.Is(err, user.ErrBadBatchYear) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Batch number must be a year >= 2024"})
			return
		}
		serverError(c, "upsert batch", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": b})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.Users(c.Request.Context())
	if err != nil {
		serverError(c, "list users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var in struct {
		Name    string `json:"name"`
		RegNo   string `json:"regNo"`
		BatchID string `json:"batchId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.users.Update(c.Request.Context(), c.Param("id"), in.Name, in.RegNo, in.BatchID)
	if err != nil {
		serverError(c, "update user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// ---------- schedule ----------

func (h *Handler) PutSchedule(c *gin.Context) {
	var in struct {
		Schedule schedule.WeekInput `json:"schedule"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.schedule.ReplaceWeek(c.Request.Context(), c.Param("id"), in.Schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) GetSchedule(c *gin.Context) {
	week, err := h.schedule.WeekFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		serverError(c, "get schedule", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": week})
}

func (h *Handler) ScheduleToday(c *gin.Context) {
	batchID := c.Query("batchId")
	if batchID == "" {
		batchID = auth.FromContext(c).BatchID
	}
	if batchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Batch required"})
		return
	}
	today := time.Now()
	slots, err := h.schedule.SlotsForDate(c.Request.Context(), batchID, today)
	if err != nil {
		serverError(c, "schedule today", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weekday": calendar.WeekdayIndex(today), "classes": slots})
}

func (h *Handler) ScheduleOnDate(c *gin.Context) {
	batchID, dateStr := c.Query("batchId"), c.Query("date")
	if batchID == "" || dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batchId & date required"})
		return
	}
	date, err := calendar.ParseYMD(dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slots, err := h.schedule.SlotsForDate(c.Request.Context(), batchID, date)
	if err != nil {
		serverError(c, "schedule on date", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":    dateStr,
		"weekday": calendar.WeekdayIndex(date),
		"classes": slots,
	})
}

// ---------- sessions & attendance ----------

func (h *Handler) GenerateSession(c *gin.Context) {
	batchID := c.Param("batchId")
	var in struct {
		BatchID string `json:"batchId"`
		DateYMD string `json:"dateYMD"`
		SlotID  string `json:"slotId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.DateYMD == "" || in.SlotID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dateYMD and slotId required"})
		return
	}
	if batchID == "" {
		batchID = in.BatchID
	}
	if batchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batchId required"})
		return
	}

	issued, err := h.sessions.Issue(c.Request.Context(), batchID, in.DateYMD, in.SlotID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSlotNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
		case errors.Is(err, calendar.ErrBadDate):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			serverError(c, "generate session", err)
		}
		return
	}
	metrics.SessionsIssued.Inc()
	c.JSON(http.StatusOK, gin.H{
		"url":       issued.URL,
		"qrDataUrl": issued.QRDataURL,
		"session":   issued.Session,
	})
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	var in struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}
	claims := auth.FromContext(c)
	rec, err := h.marks.Mark(c.Request.Context(), attendance.Identity{
		UserID:  claims.UserID,
		BatchID: claims.BatchID,
	}, in.Token)
	if err != nil {
		switch {
		case errors.Is(err, sessiontoken.ErrInvalidOrExpired):
			metrics.Marks.WithLabelValues("invalid_token").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid/expired session"})
		case errors.Is(err, attendance.ErrWrongBatch):
			metrics.Marks.WithLabelValues("wrong_batch").Inc()
			c.JSON(http.StatusForbidden, gin.H{"error": "Wrong batch"})
		case errors.Is(err, attendance.ErrWeekendClosed):
			metrics.Marks.WithLabelValues("weekend").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Weekend is off"})
		case errors.Is(err, attendance.ErrAlreadyMarked):
			metrics.Marks.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			metrics.Marks.WithLabelValues("error").Inc()
			serverError(c, "mark attendance", err)
		}
		return
	}
	metrics.Marks.WithLabelValues("ok").Inc()

	// Stage the row for export off the request path. The DB insert above is
	// the durable record; a lost staging message only degrades the export.
	if body, err := json.Marshal(rec); err == nil {
		if err := h.q.Publish(c.Request.Context(), queue.Message{Type: "mark", Body: body}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"savedTo": h.staging.Path(rec.DateYMD, rec.BatchID),
	})
}

func (h *Handler) SessionAttendance(c *gin.Context) {
	recs, err := h.marksLog.ListForSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		serverError(c, "session attendance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (h *Handler) ExportAttendance(c *gin.Context) {
	dateYMD, batchID := c.Query("dateYMD"), c.Query("batchId")
	if dateYMD == "" || batchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dateYMD & batchId required"})
		return
	}
	wb, err := h.staging.Workbook(dateYMD, batchID)
	if err != nil {
		if errors.Is(err, export.ErrNoStaging) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No attendance file"})
			return
		}
		serverError(c, "export", err)
		return
	}
	defer wb.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance_%s_%s.xlsx"`, dateYMD, batchID))
	if err := wb.Write(c.Writer); err != nil {
		log.Printf("export write failed: %v", err)
	}
}

// ---------- community ----------

func (h *Handler) ListPosts(c *gin.Context) {
	posts, err := h.board.List(c.Request.Context(), auth.FromContext(c).IsAdmin())
	if err != nil {
		serverError(c, "list posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) CreatePost(c *gin.Context) {
	var in struct {
		Body string `json:"body"`
		Type string `json:"type"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty post"})
		return
	}
	claims := auth.FromContext(c)
	post, err := h.board.Create(c.Request.Context(), community.Poster{
		UserID:  claims.UserID,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin(),
	}, in.Body, in.Type)
	if err != nil {
		switch {
		case errors.Is(err, community.ErrEmptyPost), errors.Is(err, community.ErrTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			serverError(c, "create post", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.board.Delete(c.Request.Context(), c.Param("id")); err != nil {
		serverError(c, "delete post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ---------- health ----------

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "now": time.Now().UTC().Format(time.RFC3339)})
}

// serverError logs the cause and answers with a generic message so internal
// details (including the signing secret) never reach the client.
func serverError(c *gin.Context, op string, err error) {
	log.Printf("%s failed: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}
