package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/fredCollect/pkg/models"
)

// resource exposes CRUD for a reference entity stored as-is.
type resource[T any] struct {
	name     string
	list     func() ([]*T, error)
	get      func(uuid.UUID) (*T, error)
	create   func(*T) error
	update   func(*T) error
	remove   func(uuid.UUID) error
	meta     func(*T) (*uuid.UUID, *time.Time) // ID and CreatedAt fields
	validate func(*T) error
	now      func() time.Time
	fail     func(http.ResponseWriter, *http.Request, error)
}

func (rs resource[T]) register(router *mux.Router, prefix string) {
	router.HandleFunc(prefix, rs.listHandler).Methods("GET")
	router.HandleFunc(prefix, rs.createHandler).Methods("POST")
	router.HandleFunc(prefix+"/{id}", rs.getHandler).Methods("GET")
	router.HandleFunc(prefix+"/{id}", rs.updateHandler).Methods("PUT")
	router.HandleFunc(prefix+"/{id}", rs.deleteHandler).Methods("DELETE")
}

func (rs resource[T]) invalid(problem string) error {
	return fmt.Errorf("%w: invalid %s: %s", errBadRequest, rs.name, problem)
}

func (rs resource[T]) listHandler(w http.ResponseWriter, r *http.Request) {
	items, err := rs.list()
	if err != nil {
		rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rs resource[T]) getHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		rs.fail(w, r, err)
		return
	}
	item, err := rs.get(id)
	if err != nil {
		rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rs resource[T]) createHandler(w http.ResponseWriter, r *http.Request) {
	item := new(T)
	if err := decode(r, item); err != nil {
		rs.fail(w, r, err)
		return
	}
	if err := rs.validate(item); err != nil {
		rs.fail(w, r, err)
		return
	}
	id, created := rs.meta(item)
	*id, *created = uuid.New(), rs.now()
	if err := rs.create(item); err != nil {
		rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// updateHandler merges the body into the stored record; ID and CreatedAt cannot change.
func (rs resource[T]) updateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		rs.fail(w, r, err)
		return
	}
	item, err := rs.get(id)
	if err != nil {
		rs.fail(w, r, err)
		return
	}
	idField, createdField := rs.meta(item)
	created := *createdField
	if err := decode(r, item); err != nil {
		rs.fail(w, r, err)
		return
	}
	*idField, *createdField = id, created
	if err := rs.validate(item); err != nil {
		rs.fail(w, r, err)
		return
	}
	if err := rs.update(item); err != nil {
		rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rs resource[T]) deleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		rs.fail(w, r, err)
		return
	}
	if err := rs.remove(id); err != nil {
		rs.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func required(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (s *Server) clientResource() resource[models.Client] {
	rs := resource[models.Client]{
		name:   "client",
		list:   s.storage.GetAllClients,
		get:    s.storage.GetClient,
		create: s.storage.CreateClient,
		update: s.storage.UpdateClient,
		remove: s.storage.DeleteClient,
		meta:   func(c *models.Client) (*uuid.UUID, *time.Time) { return &c.ID, &c.CreatedAt },
		now:    s.now,
		fail:   s.fail,
	}
	rs.validate = func(c *models.Client) error {
		if !required(c.Name) {
			return rs.invalid("name is required")
		}
		return nil
	}
	return rs
}

func (s *Server) sisterCompanyResource() resource[models.SisterCompany] {
	rs := resource[models.SisterCompany]{
		name:   "sister company",
		list:   s.storage.GetAllSisterCompanies,
		get:    s.storage.GetSisterCompany,
		create: s.storage.CreateSisterCompany,
		update: s.storage.UpdateSisterCompany,
		remove: s.storage.DeleteSisterCompany,
		meta:   func(c *models.SisterCompany) (*uuid.UUID, *time.Time) { return &c.ID, &c.CreatedAt },
		now:    s.now,
		fail:   s.fail,
	}
	rs.validate = func(c *models.SisterCompany) error {
		if !required(c.Name) {
			return rs.invalid("name is required")
		}
		if c.CompanyName == "" {
			c.CompanyName = c.Name
		}
		return nil
	}
	return rs
}

func (s *Server) userResource() resource[models.User] {
	rs := resource[models.User]{
		name:   "user",
		list:   s.storage.GetAllUsers,
		get:    s.storage.GetUser,
		create: s.storage.CreateUser,
		update: s.storage.UpdateUser,
		remove: s.storage.DeleteUser,
		meta:   func(u *models.User) (*uuid.UUID, *time.Time) { return &u.ID, &u.CreatedAt },
		now:    s.now,
		fail:   s.fail,
	}
	rs.validate = func(u *models.User) error {
		if !required(u.Username, u.Email, u.Role) {
			return rs.invalid("username, email and role are required")
		}
		return nil
	}
	return rs
}
