package daemon

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quicksapp/quicks/internal/bus"
	"github.com/quicksapp/quicks/internal/cache"
	"github.com/quicksapp/quicks/internal/inbox"
	"github.com/quicksapp/quicks/internal/loader"
	"github.com/quicksapp/quicks/internal/metrics"
	"github.com/quicksapp/quicks/internal/model"
	"github.com/quicksapp/quicks/internal/remote"
	"github.com/quicksapp/quicks/internal/status"
	"github.com/quicksapp/quicks/internal/tasks"
	"go.uber.org/zap"
)

// Handlers implements the daemon's HTTP API over the loader and the
// mutation services.
type Handlers struct {
	loader  *loader.Loader
	inbox   *inbox.Service
	tasks   *tasks.Service
	drafts  *tasks.Drafts
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewHandlers wires the API handlers.
func NewHandlers(l *loader.Loader, in *inbox.Service, ts *tasks.Service, d *tasks.Drafts, m *status.Machine, b *bus.Bus, logger *zap.Logger) *Handlers {
	return &Handlers{loader: l, inbox: in, tasks: ts, drafts: d, machine: m, bus: b, logger: logger}
}

// Register mounts all routes on the engine.
func (h *Handlers) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	{
		v1.GET("/status", h.getStatus)
		v1.GET("/profile", h.getProfile)

		v1.GET("/chats", h.listChats)
		v1.GET("/chats/:id/messages", h.listMessages)
		v1.POST("/chats/:id/messages", h.postMessage)
		v1.POST("/chats/:id/read", h.readMessages)
		v1.DELETE("/chats/:id/messages/:messageId", h.deleteMessage)

		v1.GET("/tasks", h.listTasks)
		v1.POST("/tasks", h.createTask)
		v1.PUT("/tasks/:id", h.updateTask)
		v1.DELETE("/tasks/:id", h.deleteTask)
		v1.POST("/tasks/:id/complete", h.completeTask)

		v1.POST("/draft", h.beginDraft)
		v1.PUT("/draft", h.setDraft)
		v1.POST("/draft/resolve", h.resolveDraft)

		v1.GET("/events", h.streamEvents)
	}
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func (h *Handlers) fail(c *gin.Context, err error) {
	var fetchErr *remote.FetchError
	var corrupt *cache.CorruptError
	switch {
	case errors.Is(err, loader.ErrCacheMiss),
		errors.Is(err, inbox.ErrMessageNotFound),
		errors.Is(err, tasks.ErrTaskNotFound),
		errors.Is(err, tasks.ErrNoDraft),
		errors.Is(err, cache.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, tasks.ErrDraftInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "upstreamStatus": fetchErr.Status})
	case errors.As(err, &corrupt):
		h.logger.Error("corrupt cache entry", zap.String("key", corrupt.Key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("request_id", c.GetString("request_id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func localFlag(c *gin.Context) bool {
	return c.Query("local") == "true" || c.Query("local") == "1"
}

func (h *Handlers) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":             h.machine.Current(),
		"freshnessWindowMs": h.loader.Window().Milliseconds(),
	})
}

func (h *Handlers) getProfile(c *gin.Context) {
	user, err := h.loader.Profile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) listChats(c *gin.Context) {
	chats, err := h.loader.Chats(c.Request.Context(), localFlag(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *Handlers) listMessages(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.loader.Messages(c.Request.Context(), chatID, localFlag(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) postMessage(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Body    string                `json:"body"`
		ReplyTo *model.ReplyRef       `json:"replyTo"`
		Action  *model.ActionEnvelope `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	action, err := req.Action.Decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Messages are posted as the profile user, same as the compose box.
	user, err := h.loader.Profile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	msgs, err := h.inbox.Post(chatID, user, req.Body, req.ReplyTo, action)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) readMessages(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		IDs        []int64 `json:"ids"`
		CoversLast bool    `json:"coversLast"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	msgs, err := h.inbox.Read(chatID, req.IDs, req.CoversLast)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) deleteMessage(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgID, ok := pathID(c, "messageId")
	if !ok {
		return
	}
	msgs, err := h.inbox.Delete(chatID, msgID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) listTasks(c *gin.Context) {
	list, err := h.loader.Tasks(c.Request.Context(), localFlag(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if mode := model.TaskMode(c.Query("mode")); mode != "" {
		if !mode.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task mode"})
			return
		}
		filtered := make([]model.Task, 0, len(list))
		for _, t := range list {
			if t.TaskMode == mode {
				filtered = append(filtered, t)
			}
		}
		list = filtered
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (h *Handlers) createTask(c *gin.Context) {
	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !task.TaskMode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task mode"})
		return
	}
	list, err := h.tasks.Create(task)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (h *Handlers) updateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	list, err := h.tasks.Update(id, task)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (h *Handlers) deleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.tasks.Delete(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (h *Handlers) completeTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Completed bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	list, err := h.tasks.Complete(id, req.Completed)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (h *Handlers) beginDraft(c *gin.Context) {
	var req struct {
		TaskMode model.TaskMode `json:"taskMode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !req.TaskMode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task mode"})
		return
	}
	draft, err := h.drafts.Begin(req.TaskMode)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handlers) setDraft(c *gin.Context) {
	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	draft, err := h.drafts.Set(task)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handlers) resolveDraft(c *gin.Context) {
	committed, list, err := h.drafts.Resolve()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"committed": committed, "tasks": list})
}

// streamEvents forwards bus events to the client as server-sent events.
func (h *Handlers) streamEvents(c *gin.Context) {
	ch, unsub := h.bus.Subscribe("", 64)
	defer unsub()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case evt := <-ch:
			c.SSEvent("message", gin.H{
				"eventId":    uuid.New().String(),
				"kind":       evt.Kind,
				"occurredAt": evt.Timestamp.UnixMilli(),
			})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
