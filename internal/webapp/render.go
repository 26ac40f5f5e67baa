package webapp

import (
	"embed"
	"html/template"
	"net/http"
	"sort"

	"taskpad/internal/model"
	"taskpad/internal/session"
	"taskpad/internal/task"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type filterView struct {
	Q         string
	Priority  string
	Completed string
	Errors    map[string]string
}

func newFilterView(r task.FilterResult) filterView {
	return filterView{
		Q:         r.Q,
		Priority:  string(r.Priority),
		Completed: r.Completed,
		Errors:    r.Errors,
	}
}

type indexData struct {
	Flashes   []session.Message
	CSRFToken string
	Tasks     []model.Task
	Filters   filterView
}

type createData struct {
	Flashes   []session.Message
	CSRFToken string
	Values    map[string]string
	Errors    map[string]string
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Printf("[webapp] render %s: %v", name, err)
	}
}

// sortForDisplay orders tasks incomplete-first, then High before Medium
// before Low, keeping insertion order within each group. Presentation only;
// the stored order is untouched.
func sortForDisplay(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Completed != tasks[j].Completed {
			return !tasks[i].Completed
		}
		return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
	})
}
