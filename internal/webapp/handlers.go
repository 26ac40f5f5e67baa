package webapp

import (
	"net/http"

	"taskpad/internal/model"
	"taskpad/internal/session"
	"taskpad/internal/task"
)

func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	if sess, ok := session.FromContext(r.Context()); ok {
		return sess
	}
	return s.sessions.Attach(w, r)
}

// GET / — task list with filters.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	sess := s.sessionFor(w, r)

	q := r.URL.Query()
	fr := task.ValidateFilters(map[string]string{
		"q":         q.Get("q"),
		"priority":  q.Get("priority"),
		"completed": q.Get("completed"),
	})

	tasks, err := s.store.Filter(fr.Criteria())
	if err != nil {
		sess.PushFlash(session.SeverityError, "Could not load tasks. Please try again.")
		tasks = []model.Task{}
	}
	sortForDisplay(tasks)

	s.render(w, "index", indexData{
		Flashes:   sess.DrainFlash(),
		CSRFToken: sess.IssueCSRF(),
		Tasks:     tasks,
		Filters:   newFilterView(fr),
	})
}

// GET /create — new-task form, sticky across a failed submit.
func (s *Server) CreateForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Redirect(w, r, "/create", http.StatusSeeOther)
		return
	}
	sess := s.sessionFor(w, r)
	values, errors := sess.TakeForm()

	s.render(w, "create", createData{
		Flashes:   sess.DrainFlash(),
		CSRFToken: sess.IssueCSRF(),
		Values:    values,
		Errors:    errors,
	})
}

// POST /actions — create, toggle and delete. The CSRF token is checked
// before anything mutates; every outcome is a flash plus a redirect.
func (s *Server) Actions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	sess := s.sessionFor(w, r)

	if err := r.ParseForm(); err != nil {
		sess.PushFlash(session.SeverityError, "Invalid form submission.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if !sess.ValidateCSRF(r.PostFormValue("csrf_token")) {
		sess.PushFlash(session.SeverityError, "Invalid security token. Please try again.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.PostFormValue("action") {
	case "create":
		s.handleCreate(w, r, sess)
	case "toggle":
		s.handleToggle(w, r, sess)
	case "delete":
		s.handleDelete(w, r, sess)
	default:
		sess.PushFlash(session.SeverityError, "Invalid action.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	fields := map[string]string{
		"title":       r.PostFormValue("title"),
		"description": r.PostFormValue("description"),
		"priority":    r.PostFormValue("priority"),
		"due":         r.PostFormValue("due"),
	}

	vr := task.ValidateCreate(fields, s.clock.Now())
	if !vr.Valid {
		sess.StashForm(fields, vr.Errors)
		sess.PushFlash(session.SeverityError, "Please correct the errors below.")
		http.Redirect(w, r, "/create", http.StatusSeeOther)
		return
	}

	if _, err := s.store.Add(vr.Input); err != nil {
		s.logger.Printf("[webapp] add task: %v", err)
		sess.StashForm(fields, nil)
		sess.PushFlash(session.SeverityError, "Failed to create task. Please try again.")
		http.Redirect(w, r, "/create", http.StatusSeeOther)
		return
	}

	sess.PushFlash(session.SeveritySuccess, "Task created successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := r.PostFormValue("id")
	if !task.ValidateTaskID(id) {
		sess.PushFlash(session.SeverityError, "Invalid task ID.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	t, ok, err := s.store.GetByID(model.TaskID(id))
	if err != nil {
		s.logger.Printf("[webapp] toggle task: %v", err)
		sess.PushFlash(session.SeverityError, "Failed to update task status.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if !ok {
		sess.PushFlash(session.SeverityError, "Failed to update task status.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if _, err := s.store.SetCompleted(t.ID, !t.Completed); err != nil {
		s.logger.Printf("[webapp] toggle task: %v", err)
		sess.PushFlash(session.SeverityError, "Failed to update task status.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	sess.PushFlash(session.SeveritySuccess, "Task status updated!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := r.PostFormValue("id")
	if !task.ValidateTaskID(id) {
		sess.PushFlash(session.SeverityError, "Invalid task ID.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	deleted, err := s.store.Delete(model.TaskID(id))
	if err != nil {
		s.logger.Printf("[webapp] delete task: %v", err)
		sess.PushFlash(session.SeverityError, "Failed to delete task.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if !deleted {
		sess.PushFlash(session.SeverityError, "Failed to delete task.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	sess.PushFlash(session.SeveritySuccess, "Task deleted successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
