// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package stub is an in-process fake of the ptracker service: the JSON API
// with cookie sessions and refresh, and the realtime push endpoint. It backs
// the integration tests and the ptstub development binary.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wingedpig/ptclient/internal/events"
	"github.com/wingedpig/ptclient/pkg/client"
)

// Defaults.
const (
	DefaultPrefix     = "/api"
	DefaultSessionTTL = 15 * time.Minute
	defaultPageLimit  = 10
	maxPageLimit      = 100
	dashboardLimit    = 5
)

// Server is the fake service.
type Server struct {
	prefix      string
	logger      zerolog.Logger
	sessions    *sessionStore
	store       *store
	hub         *Hub
	createLimit *userLimiter
	router      *mux.Router
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	prefix        string
	logger        zerolog.Logger
	ttl           time.Duration
	limit         rate.Limit
	burst         int
	identityParam string
	now           func() time.Time
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// WithPrefix mounts the API below prefix. Default "/api".
func WithPrefix(p string) Option {
	return func(o *serverOptions) {
		o.prefix = p
	}
}

// WithSessionTTL sets how long access lasts between refreshes.
func WithSessionTTL(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithCreateLimit throttles project creation per user.
func WithCreateLimit(limit rate.Limit, burst int) Option {
	return func(o *serverOptions) {
		o.limit = limit
		o.burst = burst
	}
}

// WithIdentityParam names the websocket query parameter carrying the user
// id. Default "user_id".
func WithIdentityParam(p string) Option {
	return func(o *serverOptions) {
		o.identityParam = p
	}
}

// New creates a server with an empty data set.
func New(opts ...Option) *Server {
	o := serverOptions{
		prefix: DefaultPrefix,
		logger: zerolog.Nop(),
		ttl:    DefaultSessionTTL,
		limit:  rate.Every(time.Second),
		burst:  10,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		prefix:      o.prefix,
		logger:      o.logger,
		sessions:    newSessionStore(o.ttl),
		store:       newStore(o.now),
		hub:         NewHub(o.identityParam, o.logger),
		createLimit: newUserLimiter(o.limit, o.burst),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(Logging(s.logger))
	r.Use(Recovery(s.logger))

	base := r.PathPrefix(s.prefix).Subrouter()
	base.HandleFunc("/auth/login", s.login).Methods("POST")
	base.HandleFunc("/auth/refresh", s.refresh).Methods("POST")
	base.Handle("/ws", s.hub).Methods("GET")

	api := base.NewRoute().Subrouter()
	api.Use(s.requireSession)

	api.HandleFunc("/auth/me", s.me).Methods("GET")
	api.HandleFunc("/auth/logout", s.logout).Methods("POST")

	api.HandleFunc("/projects", s.createLimit.rateLimit(s.createProject)).Methods("POST")
	api.HandleFunc("/projects", s.listProjects).Methods("GET")
	api.HandleFunc("/projects/{id}", s.getProject).Methods("GET")
	api.HandleFunc("/projects/{id}/members", s.listMembers).Methods("GET")
	api.HandleFunc("/projects/{id}/join-requests", s.joinProject).Methods("POST")
	api.HandleFunc("/projects/{id}/join-requests", s.listJoinRequests).Methods("GET")
	api.HandleFunc("/projects/{id}/join-requests", s.respondToJoinRequest).Methods("PUT")

	api.HandleFunc("/projects/{project_id}/tasks", s.listTasks).Methods("GET")
	api.HandleFunc("/projects/{project_id}/tasks", s.createTask).Methods("POST")
	api.HandleFunc("/projects/{project_id}/tasks/{task_id}", s.getTask).Methods("GET")
	api.HandleFunc("/projects/{project_id}/tasks/{task_id}", s.updateTask).Methods("PUT")
	api.HandleFunc("/projects/{project_id}/tasks/{task_id}/comments", s.addComment).Methods("POST")
	api.HandleFunc("/projects/{project_id}/tasks/{task_id}/comments", s.listComments).Methods("GET")

	api.HandleFunc("/public/projects", s.listPublic).Methods("GET")
	api.HandleFunc("/public/projects/{id}", s.getPublic).Methods("GET")

	api.HandleFunc("/dashboard/projects/created", s.dashboardProjects(true)).Methods("GET")
	api.HandleFunc("/dashboard/projects/joined", s.dashboardProjects(false)).Methods("GET")
	api.HandleFunc("/dashboard/tasks/assigned", s.dashboardTasks(true)).Methods("GET")
	api.HandleFunc("/dashboard/tasks/unassigned", s.dashboardTasks(false)).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, ErrResourceNotFound, "no route for "+r.URL.Path)
	})
	return r
}

// Handler returns the HTTP handler serving the API and the websocket.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the realtime push hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// AddUser creates a user if needed and returns its id.
func (s *Server) AddUser(username, displayName, email string) string {
	return s.store.ensureUser(username, displayName, email)
}

// Login opens a session for an existing user and returns the session id.
func (s *Server) Login(userID string) (string, error) {
	if _, ok := s.store.user(userID); !ok {
		return "", fmt.Errorf("unknown user %s", userID)
	}
	return s.sessions.Create(userID, time.Now()), nil
}

// ExpireSessions makes every session need a refresh.
func (s *Server) ExpireSessions() {
	s.sessions.ExpireAll()
}

// RevokeSessions makes every session fail to refresh.
func (s *Server) RevokeSessions() {
	s.sessions.RevokeAll()
}

// Refreshes returns the number of refresh requests served.
func (s *Server) Refreshes() int {
	return s.sessions.Refreshes()
}

// Serve runs an HTTP server on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("stub server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

// login stands in for the identity provider round trip: it creates the
// user on first use and opens a session.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		WriteError(w, http.StatusBadRequest, ErrInvalidBody, "username is required")
		return
	}
	if req.Email == "" {
		req.Email = req.Username + "@example.com"
	}
	uid := s.store.ensureUser(req.Username, req.DisplayName, req.Email)
	s.setSessionCookie(w, s.sessions.Create(uid, time.Now()))
	u, _ := s.store.user(uid)
	WriteJSON(w, http.StatusOK, u)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "User session has expired")
		return
	}
	if !s.sessions.Refresh(cookie.Value, time.Now()) {
		s.clearSessionCookie(w)
		WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Session cannot be refreshed. Try to login again.")
		return
	}
	s.setSessionCookie(w, cookie.Value)
	WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, ok := s.store.user(userID(r.Context()))
	if !ok {
		WriteError(w, http.StatusNotFound, ErrResourceNotFound, "user not found")
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	s.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req client.CreateProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.store.createProject(userID(r.Context()), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	pageNum, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, s.store.listProjects(userID(r.Context()), pageNum, limit))
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.getProject(mux.Vars(r)["id"], userID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.store.members(mux.Vars(r)["id"], userID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

func (s *Server) joinProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.requestJoin(mux.Vars(r)["id"], userID(r.Context())); err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, nil)
}

func (s *Server) listJoinRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.store.joinRequests(mux.Vars(r)["id"], userID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"join_requests": reqs})
}

func (s *Server) respondToJoinRequest(w http.ResponseWriter, r *http.Request) {
	var d client.JoinDecision
	if !decodeBody(w, r, &d) {
		return
	}
	id := mux.Vars(r)["id"]
	name, err := s.store.respondToJoin(id, userID(r.Context()), d)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	kind := events.KindJoinRejected
	if d.JoinStatus == client.JoinStatusAccepted {
		kind = events.KindJoinAccepted
	}
	s.hub.Push(d.UserID, kind, map[string]interface{}{
		"project_id":   id,
		"project_name": name,
	})
	WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	pageNum, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	tasks, err := s.store.listTasks(mux.Vars(r)["project_id"], userID(r.Context()), pageNum, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req client.CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	projectID := mux.Vars(r)["project_id"]
	user := userID(r.Context())
	resp, err := s.store.createTask(projectID, user, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if t, err := s.store.getTask(projectID, resp.TaskID, user); err == nil {
		for _, a := range t.Assignees {
			if a.ID != user {
				s.hub.Push(a.ID, events.KindAssigneeAdded, taskPayload(t))
			}
		}
	}
	WriteJSON(w, http.StatusCreated, resp)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := s.store.getTask(vars["project_id"], vars["task_id"], userID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req client.UpdateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	ch, err := s.store.updateTask(vars["project_id"], vars["task_id"], userID(r.Context()), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	payload := taskPayload(ch.task)
	for _, id := range ch.added {
		s.hub.Push(id, events.KindAssigneeAdded, payload)
	}
	for _, id := range ch.removed {
		s.hub.Push(id, events.KindAssigneeRemoved, payload)
	}
	for _, id := range ch.notify {
		s.hub.Push(id, events.KindTaskUpdated, payload)
	}
	WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	c, notify, err := s.store.addComment(vars["project_id"], vars["task_id"], userID(r.Context()), req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	for _, id := range notify {
		s.hub.Push(id, events.KindCommentAdded, map[string]interface{}{
			"project_id": c.ProjectID,
			"task_id":    c.TaskID,
			"comment_id": c.ID,
		})
	}
	WriteJSON(w, http.StatusCreated, c)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	comments, err := s.store.listComments(vars["project_id"], vars["task_id"], userID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

func (s *Server) listPublic(w http.ResponseWriter, r *http.Request) {
	pageNum, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, s.store.listPublic(userID(r.Context()), pageNum, limit))
}

func (s *Server) getPublic(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.getPublic(mux.Vars(r)["id"], userID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

func (s *Server) dashboardProjects(created bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, s.store.recentProjects(userID(r.Context()), created, dashboardLimit))
	}
}

func (s *Server) dashboardTasks(assigned bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks := s.store.recentTasks(userID(r.Context()), assigned, dashboardLimit)
		WriteJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
	}
}

func taskPayload(t client.Task) map[string]interface{} {
	return map[string]interface{}{
		"project_id": t.ProjectID,
		"task_id":    t.ID,
		"title":      t.Title,
		"status":     t.Status,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, ErrInvalidBody, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	pageNum, limit := 1, defaultPageLimit
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, ErrInvalidQuery, "page must be a positive integer")
			return 0, 0, false
		}
		pageNum = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageLimit {
			WriteError(w, http.StatusBadRequest, ErrInvalidQuery, fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
			return 0, 0, false
		}
		limit = n
	}
	return pageNum, limit, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		WriteError(w, http.StatusNotFound, ErrResourceNotFound, err.Error())
	case errors.Is(err, errAccessDenied):
		WriteError(w, http.StatusForbidden, ErrAccessDenied, err.Error())
	case errors.Is(err, errInvalid):
		WriteError(w, http.StatusBadRequest, ErrInvalidBody, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, ErrServerError, err.Error())
	}
}
