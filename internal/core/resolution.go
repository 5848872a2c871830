package core

import "github.com/chal0326/researchcms/internal/core/model"

// Resolution maps the names and tax ids of one document onto persisted
// entities. It lives for a single reconcile pass and is shared by the entity,
// relationship and event phases.
type Resolution struct {
	byName  map[string]model.Entity
	byTaxID map[string]model.Entity
}

func newResolution(existing []model.Entity) *Resolution {
	r := &Resolution{
		byName:  make(map[string]model.Entity, len(existing)),
		byTaxID: make(map[string]model.Entity, len(existing)),
	}
	for _, e := range existing {
		if _, ok := r.byName[e.Name]; !ok {
			r.byName[e.Name] = e
		}
		if e.TaxID != "" {
			r.byTaxID[e.TaxID] = e
		}
	}
	return r
}

// Find resolves an extracted entity, preferring its tax id over its name.
func (r *Resolution) Find(ent model.ExtractedEntity) (model.Entity, bool) {
	if ent.TaxID != "" {
		if e, ok := r.byTaxID[ent.TaxID]; ok {
			return e, true
		}
	}
	e, ok := r.byName[ent.Name]
	return e, ok
}

// ID returns the entity id bound to name.
func (r *Resolution) ID(name string) (string, bool) {
	e, ok := r.byName[name]
	if !ok {
		return "", false
	}
	return e.ID, true
}

// Alias binds name to whatever entity canonical resolves to.
func (r *Resolution) Alias(name, canonical string) {
	if e, ok := r.byName[canonical]; ok {
		r.byName[name] = e
	}
}

// Bind records e under name and under its tax id.
func (r *Resolution) Bind(name string, e model.Entity) {
	r.byName[name] = e
	if e.Name != "" {
		if _, ok := r.byName[e.Name]; !ok {
			r.byName[e.Name] = e
		}
	}
	if e.TaxID != "" {
		r.byTaxID[e.TaxID] = e
	}
}
