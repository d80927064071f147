package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/vbonduro/roadiebag/internal/domain"
)

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var spec domain.ItemSpec
	if err := decodeJSON(w, r, &spec); err != nil {
		badRequest(w, r, "invalid item body: "+err.Error())
		return
	}

	item, err := s.catalog.CreateItem(r.Context(), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, r, "invalid item id")
		return
	}

	item, err := s.catalog.ReadItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, r, "invalid item id")
		return
	}
	var spec domain.ItemSpec
	if err := decodeJSON(w, r, &spec); err != nil {
		badRequest(w, r, "invalid item body: "+err.Error())
		return
	}

	item, err := s.catalog.UpdateItem(r.Context(), id, spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, r, "invalid item id")
		return
	}

	if err := s.catalog.DeleteItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := parseItemFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.catalog.ListItems(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (s *Server) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, r, "invalid item id")
		return
	}

	history, err := s.checkouts.ItemHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

func (s *Server) handleItemAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, r, "invalid item id")
		return
	}

	a, err := s.checkouts.ItemAvailability(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// parseItemFilter reads list query parameters. A parameter that is present
// constrains the listing even when empty; an absent one does not.
func parseItemFilter(q url.Values) (domain.ItemFilter, error) {
	var f domain.ItemFilter
	verr := &domain.ValidationError{}

	if q.Has("name") {
		v := q.Get("name")
		f.Name = &v
	}
	if q.Has("description") {
		v := q.Get("description")
		f.Description = &v
	}
	if q.Has("size") {
		size, err := domain.ParseItemSize(q.Get("size"))
		if err != nil {
			verr.Add("size", "must be one of Small, Medium, Large")
		} else {
			f.Size = &size
		}
	}
	if q.Has("infinite") {
		v, err := strconv.ParseBool(q.Get("infinite"))
		if err != nil {
			verr.Add("infinite", "must be true or false")
		} else {
			f.Infinite = &v
		}
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"page_num", &f.PageNum}, {"page_size", &f.PageSize}} {
		if !q.Has(p.key) {
			continue
		}
		n, err := strconv.Atoi(q.Get(p.key))
		if err != nil {
			verr.Add(p.key, "must be an integer")
			continue
		}
		*p.dst = n
	}

	if len(verr.Fields) > 0 {
		return domain.ItemFilter{}, verr
	}
	return f, nil
}
