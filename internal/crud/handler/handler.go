// Package handler exposes a generic CRUD resource over HTTP.
package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/service"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/store"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/metrics"
)

// Query keys that shape a listing instead of filtering it.
const (
	limitKey = "_limit"
	skipKey  = "_skip"
	sortKey  = "_sort"
)

// Responder writes a failure response. middleware.ErrorHandler satisfies it.
type Responder interface {
	HandleErrors(c *gin.Context, err error)
}

// Controller adapts a Service to gin handlers for one resource.
type Controller[T crud.Entity] struct {
	resource  string
	svc       *service.Service[T]
	errs      Responder
	immutable map[string]struct{}
}

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	immutable []string
}

// WithImmutable rejects updates that touch any of fields.
func WithImmutable(fields ...string) Option {
	return func(o *controllerOptions) { o.immutable = append(o.immutable, fields...) }
}

// New returns a controller for resource. Failures are written through errs.
func New[T crud.Entity](resource string, svc *service.Service[T], errs Responder, opts ...Option) *Controller[T] {
	var o controllerOptions
	for _, opt := range opts {
		opt(&o)
	}
	ctl := &Controller[T]{resource: resource, svc: svc, errs: errs, immutable: map[string]struct{}{}}
	for _, f := range o.immutable {
		ctl.immutable[f] = struct{}{}
	}
	return ctl
}

// Resource is the name used in metrics and logs.
func (ctl *Controller[T]) Resource() string { return ctl.resource }

// Register mounts the controller's routes on r under path.
func Register[T crud.Entity](r gin.IRouter, path string, ctl *Controller[T]) {
	g := r.Group(path)
	g.GET("", ctl.GetDocuments)
	g.GET("/:id", ctl.GetDocument)
	g.POST("", ctl.CreateDocument)
	g.PUT("", ctl.UpdateDocument)
	g.PUT("/:id", ctl.UpdateDocument)
	g.PATCH("", ctl.FindAndUpdateDocument)
	g.PATCH("/:id", ctl.FindAndUpdateDocument)
	g.DELETE("", ctl.DeleteDocument)
	g.DELETE("/:id", ctl.DeleteDocument)
}

func (ctl *Controller[T]) GetDocument(c *gin.Context) {
	sel, err := selector(c)
	if err != nil {
		ctl.fail(c, "get", err)
		return
	}
	doc, err := ctl.svc.GetDocument(c.Request.Context(), sel)
	if err != nil {
		ctl.fail(c, "get", err)
		return
	}
	ctl.done("get", "ok")
	c.JSON(http.StatusOK, gin.H{"status": "OK", "error": nil, "count": 1, "data": doc})
}

func (ctl *Controller[T]) GetDocuments(c *gin.Context) {
	filter, opts, err := listQuery(c)
	if err != nil {
		ctl.fail(c, "list", err)
		return
	}
	docs, err := ctl.svc.GetDocuments(c.Request.Context(), filter, opts)
	if err != nil {
		ctl.fail(c, "list", err)
		return
	}
	ctl.done("list", "ok")
	c.JSON(http.StatusOK, gin.H{"status": "OK", "error": nil, "count": len(docs), "data": docs})
}

// CreateDocument stores body.data; an array creates a batch.
func (ctl *Controller[T]) CreateDocument(c *gin.Context) {
	raw, err := payload(c)
	if err != nil {
		ctl.fail(c, "create", err)
		return
	}
	if bytes.HasPrefix(raw, []byte("[")) {
		ctl.createBatch(c, raw)
		return
	}
	doc, err := decodeDocument[T](raw)
	if err != nil {
		ctl.fail(c, "create", err)
		return
	}
	created, err := ctl.svc.CreateDocument(c.Request.Context(), doc)
	if err != nil {
		ctl.fail(c, "create", err)
		return
	}
	ctl.done("create", "ok")
	c.JSON(http.StatusCreated, gin.H{"status": "CREATED", "error": nil, "count": 1, "data": created})
}

func (ctl *Controller[T]) createBatch(c *gin.Context, raw json.RawMessage) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		ctl.fail(c, "create", malformed(err))
		return
	}
	docs := make([]T, 0, len(items))
	for _, item := range items {
		doc, err := decodeDocument[T](item)
		if err != nil {
			ctl.fail(c, "create", err)
			return
		}
		docs = append(docs, doc)
	}
	created, err := ctl.svc.CreateDocuments(c.Request.Context(), docs)
	if err != nil {
		ctl.fail(c, "create", err)
		return
	}
	ctl.done("create", "ok")
	c.JSON(http.StatusCreated, gin.H{"status": "CREATED", "error": nil, "count": len(created), "data": created})
}

func (ctl *Controller[T]) UpdateDocument(c *gin.Context) {
	sel, u, err := ctl.selectorAndUpdate(c)
	if err != nil {
		ctl.fail(c, "update", err)
		return
	}
	ok, err := ctl.svc.UpdateDocument(c.Request.Context(), sel, u)
	if err != nil {
		ctl.fail(c, "update", err)
		return
	}
	if !ok {
		ctl.done("update", "not_modified")
		c.JSON(http.StatusNotModified, gin.H{"status": "NOT_MODIFIED", "error": nil, "updated": false})
		return
	}
	ctl.done("update", "ok")
	c.JSON(http.StatusOK, gin.H{"status": "MODIFIED", "error": nil, "updated": true})
}

func (ctl *Controller[T]) FindAndUpdateDocument(c *gin.Context) {
	sel, u, err := ctl.selectorAndUpdate(c)
	if err != nil {
		ctl.fail(c, "find_and_update", err)
		return
	}
	doc, err := ctl.svc.FindAndUpdate(c.Request.Context(), sel, u)
	if err != nil {
		ctl.fail(c, "find_and_update", err)
		return
	}
	ctl.done("find_and_update", "ok")
	c.JSON(http.StatusOK, gin.H{"status": "OK", "error": nil, "count": 1, "data": doc})
}

func (ctl *Controller[T]) DeleteDocument(c *gin.Context) {
	sel, err := selector(c)
	if err != nil {
		ctl.fail(c, "delete", err)
		return
	}
	ok, err := ctl.svc.DeleteDocument(c.Request.Context(), sel)
	if err != nil {
		ctl.fail(c, "delete", err)
		return
	}
	if !ok {
		ctl.done("delete", "not_modified")
		c.JSON(http.StatusNotModified, gin.H{"status": "NOT_MODIFIED", "error": nil, "deleted": false})
		return
	}
	ctl.done("delete", "ok")
	c.JSON(http.StatusGone, gin.H{"status": "DELETED", "error": nil, "deleted": true})
}

func (ctl *Controller[T]) fail(c *gin.Context, op string, err error) {
	ctl.done(op, apperrors.Classify(err).Kind.String())
	ctl.errs.HandleErrors(c, err)
}

func (ctl *Controller[T]) done(op, outcome string) {
	metrics.Operations.WithLabelValues(ctl.resource, op, outcome).Inc()
}

// selector resolves the addressing context: an id path parameter selects
// by identifier, other path parameters form a filter, and without path
// parameters the query string is the filter.
func selector(c *gin.Context) (crud.Selector, error) {
	for _, key := range []string{"id", crud.IDField} {
		if id, ok := c.Params.Get(key); ok {
			return crud.ByID(id), nil
		}
	}
	if len(c.Params) > 0 {
		f := crud.Filter{}
		for _, p := range c.Params {
			if err := filterKey(p.Key); err != nil {
				return crud.Selector{}, err
			}
			f[p.Key] = p.Value
		}
		return crud.ByFilter(f), nil
	}
	f, _, err := listQuery(c)
	if err != nil {
		return crud.Selector{}, err
	}
	return crud.ByFilter(f), nil
}

func (ctl *Controller[T]) selectorAndUpdate(c *gin.Context) (crud.Selector, crud.Update, error) {
	sel, err := selector(c)
	if err != nil {
		return sel, nil, err
	}
	raw, err := payload(c)
	if err != nil {
		return sel, nil, err
	}
	var u crud.Update
	if err := json.Unmarshal(raw, &u); err != nil {
		return sel, nil, malformed(err)
	}
	if len(u) == 0 {
		return sel, nil, apperrors.BadRequest("Operational object has no property!")
	}
	if err := ctl.checkImmutable(u); err != nil {
		return sel, nil, err
	}
	return sel, u, nil
}

func (ctl *Controller[T]) checkImmutable(u crud.Update) error {
	if len(ctl.immutable) == 0 {
		return nil
	}
	for k, v := range u {
		fields := map[string]interface{}{k: v}
		if strings.HasPrefix(k, "$") {
			if m, ok := v.(map[string]interface{}); ok {
				fields = m
			}
		}
		for f, target := range fields {
			if err := ctl.mutable(f); err != nil {
				return err
			}
			// $rename writes to the field named by its value.
			if k == "$rename" {
				if to, ok := target.(string); ok {
					if err := ctl.mutable(to); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// mutable rejects path when its top-level field is protected.
func (ctl *Controller[T]) mutable(path string) error {
	root := strings.SplitN(path, ".", 2)[0]
	if _, ok := ctl.immutable[root]; ok {
		return apperrors.BadRequest("Field " + root + " cannot be updated")
	}
	return nil
}

// filterKey rejects top-level query operators supplied by the client.
func filterKey(key string) error {
	if strings.HasPrefix(key, "$") {
		return apperrors.BadRequest("Invalid filter key " + key)
	}
	return nil
}

// listQuery splits the query string into a filter and listing options.
// Repeated keys match any of their values.
func listQuery(c *gin.Context) (crud.Filter, store.FindOptions, error) {
	var opts store.FindOptions
	f := crud.Filter{}
	for key, values := range c.Request.URL.Query() {
		if len(values) == 0 {
			continue
		}
		switch key {
		case limitKey, skipKey:
			n, err := strconv.ParseInt(values[0], 10, 64)
			if err != nil || n < 0 {
				return nil, opts, apperrors.BadRequest("Invalid value for " + key)
			}
			if key == limitKey {
				opts.Limit = n
			} else {
				opts.Skip = n
			}
			continue
		case sortKey:
			opts.Sort = store.ParseSort(values[0])
			continue
		}
		if err := filterKey(key); err != nil {
			return nil, opts, err
		}
		if len(values) == 1 {
			f[key] = values[0]
			continue
		}
		in := make(bson.A, 0, len(values))
		for _, v := range values {
			in = append(in, v)
		}
		f[key] = bson.M{"$in": in}
	}
	return f, opts, nil
}

// payload returns the raw data member of the request body.
func payload(c *gin.Context) (json.RawMessage, error) {
	body, err := c.GetRawData()
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return nil, apperrors.BadRequest("Operational object missing!")
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, malformed(err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, apperrors.BadRequest("Operational object missing!")
	}
	return data, nil
}

// decodeDocument decodes one document and runs binding validation on it.
func decodeDocument[T crud.Entity](raw json.RawMessage) (T, error) {
	var zero T
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, malformed(err)
	}
	if len(fields) == 0 {
		return zero, apperrors.BadRequest("Operational object has no property!")
	}
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return zero, malformed(err)
	}
	if binding.Validator != nil {
		if err := binding.Validator.ValidateStruct(doc); err != nil {
			return zero, err
		}
	}
	return doc, nil
}

func malformed(err error) error {
	return apperrors.Wrap(apperrors.KindBadRequest, "Malformed request body!", err)
}
