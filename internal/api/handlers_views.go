package api

import (
	"net/http"
	"strconv"
	"strings"

	"healthops/internal/models"
	"healthops/internal/query"
	"healthops/internal/workflow"
)

const filterPrefix = "f."

type contextJSON struct {
	Context    workflow.Context        `json:"context"`
	Entity     workflow.Entity         `json:"entity"`
	Tabs       []workflow.Bucket       `json:"tabs"`
	DefaultTab workflow.Bucket         `json:"defaultTab"`
	Counts     map[workflow.Bucket]int `json:"counts"`
}

type groupJSON struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type viewJSON struct {
	Context  workflow.Context `json:"context"`
	Tab      workflow.Bucket  `json:"tab"`
	Total    int              `json:"total"`
	Pages    int              `json:"pages"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
	HasNext  bool             `json:"hasNext"`
	Windowed bool             `json:"windowed,omitempty"`
	Items    []map[string]any `json:"items"`
	Groups   []groupJSON      `json:"groups,omitempty"`
}

func (s *HTTPServer) viewOptions() []workflow.ViewOption {
	return []workflow.ViewOption{
		workflow.WithLocation(s.deps.Location),
		workflow.WithClock(s.deps.Now),
		workflow.WithWindow(s.deps.Console.LargeCollectionThreshold, s.deps.Console.WindowSize),
	}
}

func (s *HTTPServer) handleContexts(w http.ResponseWriter, _ *http.Request) {
	out := make([]contextJSON, 0, len(workflow.Contexts()))
	for _, ctx := range workflow.Contexts() {
		entity, _ := workflow.EntityOf(ctx)
		tabs, _ := workflow.Tabs(ctx)
		def, _ := workflow.DefaultTab(ctx)
		item := contextJSON{Context: ctx, Entity: entity, Tabs: tabs, DefaultTab: def}

		switch entity {
		case workflow.EntityCamp:
			if v, err := workflow.NewCampView(ctx, s.deps.Camps, s.viewOptions()...); err == nil {
				item.Counts = v.Counts()
			}
		case workflow.EntityBooking:
			if v, err := workflow.NewBookingView(ctx, s.deps.Bookings, s.viewOptions()...); err == nil {
				item.Counts = v.Counts()
			}
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"contexts": out})
}

// parseSpec reads tab, sort, dir, page, size and f.<field> query parameters.
func (s *HTTPServer) parseSpec(r *http.Request) (workflow.Bucket, query.Spec, error) {
	q := r.URL.Query()
	spec := query.Spec{Page: query.Page{Index: 1, Size: s.deps.Console.PageSize}}

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", spec, errBadParam("page")
		}
		spec.Page.Index = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return "", spec, errBadParam("size")
		}
		spec.Page.Size = n
	}

	spec.Sort.Field = strings.TrimSpace(q.Get("sort"))
	switch strings.ToLower(q.Get("dir")) {
	case "", "asc":
		spec.Sort.Direction = query.Asc
	case "desc":
		spec.Sort.Direction = query.Desc
	default:
		return "", spec, errBadParam("dir")
	}

	for key, values := range q {
		if !strings.HasPrefix(key, filterPrefix) || len(values) == 0 {
			continue
		}
		if spec.Filters == nil {
			spec.Filters = query.Filters{}
		}
		spec.Filters[strings.TrimPrefix(key, filterPrefix)] = values[0]
	}

	return workflow.Bucket(q.Get("tab")), spec, nil
}

type badParamError string

func (e badParamError) Error() string { return "invalid query parameter: " + string(e) }

func errBadParam(name string) error { return badParamError(name) }

func (s *HTTPServer) handleView(w http.ResponseWriter, r *http.Request) {
	ctx := workflow.Context(r.PathValue("context"))
	entity, err := workflow.EntityOf(ctx)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	tab, spec, err := s.parseSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	group := strings.TrimSpace(r.URL.Query().Get("group"))

	switch entity {
	case workflow.EntityCamp:
		v, err := workflow.NewCampView(ctx, s.deps.Camps, s.viewOptions()...)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		l, err := v.Query(tab, spec)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		now := s.deps.Now()
		out := listingJSON(l, func(c models.Camp) map[string]any { return s.campJSON(c, now) })
		_, out.Windowed = v.Windowed(l)
		if group != "" {
			out.Groups = groupsJSON(query.GroupBy(l.Ordered, group))
		}
		writeJSON(w, http.StatusOK, out)
	case workflow.EntityBooking:
		v, err := workflow.NewBookingView(ctx, s.deps.Bookings, s.viewOptions()...)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		l, err := v.Query(tab, spec)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		out := listingJSON(l, s.bookingJSON)
		_, out.Windowed = v.Windowed(l)
		if group != "" {
			out.Groups = groupsJSON(query.GroupBy(l.Ordered, group))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listingJSON[T query.Record](l workflow.Listing[T], encode func(T) map[string]any) viewJSON {
	out := viewJSON{
		Context: l.Context,
		Tab:     l.Tab,
		Total:   l.Total,
		Pages:   l.Pages,
		Page:    l.Page,
		Size:    l.Size,
		HasNext: l.HasNext(),
		Items:   make([]map[string]any, 0, len(l.Items)),
	}
	for _, rec := range l.Items {
		out.Items = append(out.Items, encode(rec))
	}
	return out
}

func groupsJSON[T query.Record](groups []query.Group[T]) []groupJSON {
	out := make([]groupJSON, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupJSON{Key: g.Key, Count: len(g.Items)})
	}
	return out
}

// handleExport writes every row of the filtered, sorted tab to a sink.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	tab, spec, err := s.parseSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := workflow.Context(r.PathValue("context"))
	res, err := s.exporter.Export(r.Context(), view, tab, spec, r.URL.Query().Get("sink"))
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
		s.logger.Error().Err(err).Str("context", string(view)).Msg("export failed")
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"context":  res.Context,
		"tab":      res.Tab,
		"rows":     res.Rows,
		"location": res.Location,
	})
}

func (s *HTTPServer) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := workflow.Context(r.PathValue("context"))
	nav := workflow.NewNavigator(s.deps.Camps, s.deps.Bookings, s.localNow, nil)
	sel, err := nav.Select(ctx, r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.selectionJSON(sel))
}

func (s *HTTPServer) selectionJSON(sel workflow.Selection) map[string]any {
	out := map[string]any{"context": sel.Context, "tab": sel.Tab, "id": sel.ID}
	if sel.Camp != nil {
		out["record"] = s.campJSON(*sel.Camp, s.deps.Now())
	}
	if sel.Booking != nil {
		out["record"] = s.bookingJSON(*sel.Booking)
	}
	return out
}
