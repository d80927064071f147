package store

import (
	"strings"

	"github.com/vbonduro/roadiebag/internal/db"
	"github.com/vbonduro/roadiebag/internal/domain"
)

const (
	DefaultPageSize = 50
	wildcard        = "%"
)

// itemQuery is the WHERE clause and page window derived from an ItemFilter.
type itemQuery struct {
	where    string
	args     []any
	pageNum  int
	pageSize int
}

// composeItemQuery ANDs together a predicate for every non-nil filter field.
// All values are bound as parameters. Text predicates are case-insensitive
// across Unicode, not only ASCII.
func composeItemQuery(d db.Dialect, f domain.ItemFilter) itemQuery {
	var conds []string
	var args []any

	if f.Name != nil {
		conds = append(conds, d.ContainsFold("name"))
		args = append(args, likePattern(*f.Name))
	}
	if f.Description != nil {
		conds = append(conds, d.ContainsFold("description"))
		args = append(args, likePattern(*f.Description))
	}
	if f.Size != nil {
		conds = append(conds, "size = ?")
		args = append(args, int16(*f.Size))
	}
	if f.Infinite != nil {
		conds = append(conds, "infinite = ?")
		args = append(args, *f.Infinite)
	}

	q := itemQuery{args: args, pageNum: max(f.PageNum, 0), pageSize: f.PageSize}
	if q.pageSize <= 0 {
		q.pageSize = DefaultPageSize
	}
	if len(conds) > 0 {
		q.where = " WHERE " + strings.Join(conds, " AND ")
	}
	return q
}

// likePattern turns a plain search string into a prefix match. A string that
// already contains a wildcard is used verbatim.
func likePattern(s string) string {
	if strings.Contains(s, wildcard) {
		return s
	}
	return s + wildcard
}

func (q itemQuery) offset() int {
	return q.pageNum * q.pageSize
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
