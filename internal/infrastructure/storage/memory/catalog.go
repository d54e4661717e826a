package memory

import (
	"context"
	"sort"
	"strings"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/domain"
)

// catalogTable implements domain.CatalogRepository over one of the
// store's catalog maps. meta exposes the embedded entity.Catalog of T so
// the generic code can reach id/code/name/version; clone makes the
// copy-on-write copies the snapshot mechanism relies on.
type catalogTable[T any] struct {
	store  *Store
	name   string
	rows   func() map[id.ID]T
	meta   func(T) *entity.Catalog
	clone  func(T) T
}

func (t *catalogTable[T]) Create(ctx context.Context, e T) error {
	return t.store.locked(ctx, func() error {
		m := t.meta(e)
		for _, existing := range t.rows() {
			if t.meta(existing).Code == m.Code {
				return apperror.NewDuplicate(t.name, "code", m.Code)
			}
		}
		t.rows()[m.ID] = t.clone(e)
		return nil
	})
}

func (t *catalogTable[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	var out T
	err := t.store.locked(ctx, func() error {
		row, ok := t.rows()[entityID]
		if !ok {
			return apperror.NewNotFound(t.name, entityID.String())
		}
		out = t.clone(row)
		return nil
	})
	return out, err
}

func (t *catalogTable[T]) GetByCode(ctx context.Context, code string) (T, error) {
	var out T
	err := t.store.locked(ctx, func() error {
		for _, row := range t.rows() {
			if t.meta(row).Code == code {
				out = t.clone(row)
				return nil
			}
		}
		return apperror.NewNotFound(t.name, code)
	})
	return out, err
}

func (t *catalogTable[T]) Update(ctx context.Context, e T) error {
	return t.store.locked(ctx, func() error {
		m := t.meta(e)
		current, ok := t.rows()[m.ID]
		if !ok {
			return apperror.NewNotFound(t.name, m.ID.String())
		}
		if t.meta(current).Version != m.Version {
			return apperror.NewConcurrentModification(t.name, m.ID.String())
		}
		updated := t.clone(e)
		t.meta(updated).Touch()
		t.rows()[m.ID] = updated
		m.Version = t.meta(updated).Version
		return nil
	})
}

func (t *catalogTable[T]) Delete(ctx context.Context, entityID id.ID) error {
	return t.SetDeletionMark(ctx, entityID, true)
}

func (t *catalogTable[T]) SetDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	return t.store.locked(ctx, func() error {
		row, ok := t.rows()[entityID]
		if !ok {
			return apperror.NewNotFound(t.name, entityID.String())
		}
		updated := t.clone(row)
		t.meta(updated).DeletionMark = marked
		t.meta(updated).Touch()
		t.rows()[entityID] = updated
		return nil
	})
}

func (t *catalogTable[T]) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: f.Limit, Offset: f.Offset}
	err := t.store.locked(ctx, func() error {
		var matched []T
		for _, row := range t.rows() {
			m := t.meta(row)
			if m.DeletionMark && !f.IncludeDeleted {
				continue
			}
			if len(f.IDs) > 0 && !containsID(f.IDs, m.ID) {
				continue
			}
			if f.Search != "" {
				needle := strings.ToLower(f.Search)
				if !strings.Contains(strings.ToLower(m.Name), needle) &&
					!strings.Contains(strings.ToLower(m.Code), needle) {
					continue
				}
			}
			matched = append(matched, t.clone(row))
		}

		sort.Slice(matched, func(i, j int) bool {
			a, b := t.meta(matched[i]), t.meta(matched[j])
			if f.OrderBy == "code" || f.OrderBy == "-code" {
				if strings.HasPrefix(f.OrderBy, "-") {
					return a.Code > b.Code
				}
				return a.Code < b.Code
			}
			if f.OrderBy == "-name" {
				return a.Name > b.Name
			}
			return a.Name < b.Name
		})

		result.TotalCount = int64(len(matched))
		if f.Offset > 0 {
			if f.Offset >= len(matched) {
				matched = nil
			} else {
				matched = matched[f.Offset:]
			}
		}
		if f.Limit > 0 && len(matched) > f.Limit {
			matched = matched[:f.Limit]
		}
		result.Items = matched
		return nil
	})
	return result, err
}

func (t *catalogTable[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	var found bool
	err := t.store.locked(ctx, func() error {
		_, found = t.rows()[entityID]
		return nil
	})
	return found, err
}

func (t *catalogTable[T]) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var found bool
	err := t.store.locked(ctx, func() error {
		for _, row := range t.rows() {
			if t.meta(row).Code == code {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, candidate := range ids {
		if candidate == target {
			return true
		}
	}
	return false
}
