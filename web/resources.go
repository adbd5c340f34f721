// ABOUTME: CRUD routes shared by deals, tasks and meetings
// ABOUTME: Stamps each mutation with the caller's name and records it in the activity log
package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/incial/crm/activity"
	"github.com/incial/crm/audit"
	"github.com/incial/crm/coordinator"
	"github.com/incial/crm/models"
	"github.com/incial/crm/store"
)

type resource[E models.Record, P any] struct {
	server  *Server
	name    string
	listKey string
	coll    *store.Collection[E, P]
	kind    coordinator.Kind[E, P]
}

// register mounts all, create, update/:id and delete/:id under g.
func (r *resource[E, P]) register(g *gin.RouterGroup) {
	g.GET("/all", r.list)
	g.POST("/create", r.create)
	g.PUT("/update/:id", r.update)
	g.DELETE("/delete/:id", r.remove)
}

func (r *resource[E, P]) stamper(c *gin.Context) audit.Stamper {
	return audit.Stamper{Actor: callerName(c), Clock: r.server.clock}
}

func (r *resource[E, P]) list(c *gin.Context) {
	items, err := r.coll.GetAll(c.Request.Context())
	if err != nil {
		r.server.writeError(c, err)
		return
	}
	if items == nil {
		items = []E{}
	}
	if r.listKey != "" {
		c.JSON(http.StatusOK, gin.H{r.listKey: items})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (r *resource[E, P]) create(c *gin.Context) {
	var draft E
	if err := c.ShouldBindJSON(&draft); err != nil {
		r.server.writeError(c, models.Validationf("invalid request body: %v", err))
		return
	}

	created, err := r.coll.Create(c.Request.Context(), r.kind.StampDraft(r.stamper(c), draft))
	if err != nil {
		r.server.writeError(c, err)
		return
	}
	r.record(c, activity.VerbCreated, created.Key())
	c.JSON(http.StatusCreated, created)
}

func (r *resource[E, P]) update(c *gin.Context) {
	id, ok := r.idParam(c)
	if !ok {
		return
	}
	var patch P
	if err := c.ShouldBindJSON(&patch); err != nil {
		r.server.writeError(c, models.Validationf("invalid request body: %v", err))
		return
	}

	updated, err := r.coll.Update(c.Request.Context(), id, r.kind.StampPatch(r.stamper(c), patch))
	if err != nil {
		r.server.writeError(c, err)
		return
	}
	r.record(c, activity.VerbUpdated, id)
	c.JSON(http.StatusOK, updated)
}

// remove answers 404 for an unknown id. The store delete itself is idempotent.
func (r *resource[E, P]) remove(c *gin.Context) {
	id, ok := r.idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := r.coll.Get(ctx, id); err != nil {
		r.server.writeError(c, err)
		return
	}
	if err := r.coll.Delete(ctx, id); err != nil {
		r.server.writeError(c, err)
		return
	}
	r.record(c, activity.VerbDeleted, id)
	c.Status(http.StatusNoContent)
}

func (r *resource[E, P]) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		r.server.writeError(c, models.Validationf("invalid id: %s", c.Param("id")))
		return 0, false
	}
	return id, true
}

func (r *resource[E, P]) record(c *gin.Context, verb activity.Verb, id int64) {
	if r.server.activity == nil {
		return
	}
	actor := callerName(c)
	if actor == "" {
		actor = audit.UnknownActor
	}
	r.server.activity.Record(activity.Entry{
		ID:         uuid.New().String(),
		Actor:      actor,
		Verb:       verb,
		Collection: r.name,
		ObjectID:   id,
		Result:     activity.ResultCommitted,
		Token:      c.GetString(requestIDKey),
		At:         r.server.clock(),
	})
}
