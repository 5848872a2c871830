package dedupe

import (
	"strings"

	"github.com/chal0326/researchcms/internal/core/model"
)

// Event is a merged event together with the chunk it was first seen in.
type Event struct {
	model.ExtractedEvent
	Chunk int
	Text  string
}

// Document is the merged extraction output of every chunk of one document.
// Entities hold one record per distinct name or tax id, in first-seen order.
// Aliases maps every name folded into another record by a shared tax id to
// the name of the record it was folded into.
type Document struct {
	Key           string
	Chunks        int
	Entities      []model.ExtractedEntity
	Aliases       map[string]string
	Relationships []model.ExtractedRelationship
	Events        []Event
	Malformed     int
}

// Merge folds chunk results into a Document. For each name the most complete
// record wins: an incoming record replaces the kept one when it brings a tax
// id the kept one lacks or a strictly longer description, fields the winner
// lacks are backfilled from the loser, and the longer description is always
// kept. Records with different names but the same tax id are then folded into
// the first of them. Relationship endpoints that no chunk described as an
// entity are added as bare Other records.
func Merge(key string, results []model.ChunkResult) *Document {
	doc := &Document{Key: key, Chunks: len(results), Aliases: make(map[string]string)}

	byName := make(map[string]int)
	rels := newRelationshipSet()
	events := make(map[string]int)

	for _, res := range results {
		doc.Malformed += res.Malformed

		for _, ent := range res.Entities {
			name := strings.TrimSpace(ent.Name)
			if name == "" {
				continue
			}
			ent.Name = name
			i, ok := byName[name]
			if !ok {
				byName[name] = len(doc.Entities)
				doc.Entities = append(doc.Entities, ent)
				continue
			}
			doc.Entities[i] = pick(doc.Entities[i], ent)
		}

		for _, rel := range res.Relationships {
			rels.add(rel)
		}

		for _, ev := range res.Events {
			title := strings.TrimSpace(ev.Title)
			if ev.Year <= 0 || title == "" {
				continue
			}
			ev.Title = title
			k := eventKey(ev.Year, title)
			if i, ok := events[k]; ok {
				doc.Events[i].ExtractedEvent = mergeEvent(doc.Events[i].ExtractedEvent, ev)
				continue
			}
			events[k] = len(doc.Events)
			doc.Events = append(doc.Events, Event{ExtractedEvent: ev, Chunk: res.Index, Text: res.Text})
		}
	}

	doc.foldTaxIDs()

	doc.Relationships = rels.list()
	for _, rel := range doc.Relationships {
		for _, name := range []string{rel.From, rel.To} {
			if _, ok := byName[name]; ok {
				continue
			}
			byName[name] = len(doc.Entities)
			doc.Entities = append(doc.Entities, model.ExtractedEntity{Name: name, Type: string(model.EntityOther)})
		}
	}

	return doc
}

// foldTaxIDs collapses entities sharing a tax id into the first-seen one,
// which keeps its name and records the others as aliases.
func (d *Document) foldTaxIDs() {
	byTaxID := make(map[string]int)
	kept := d.Entities[:0]
	for _, ent := range d.Entities {
		if ent.TaxID == "" {
			kept = append(kept, ent)
			continue
		}
		i, ok := byTaxID[ent.TaxID]
		if !ok {
			byTaxID[ent.TaxID] = len(kept)
			kept = append(kept, ent)
			continue
		}
		name := kept[i].Name
		merged := pick(kept[i], ent)
		merged.Name = name
		merged.Aliases = mergeAliases(merged.Aliases, []model.Alias{{Name: ent.Name, Kind: model.AliasAKA}})
		kept[i] = merged
		d.Aliases[ent.Name] = name
	}
	d.Entities = kept
}

// Canonical returns the entity name that name was folded into, or name
// itself.
func (d *Document) Canonical(name string) string {
	if c, ok := d.Aliases[name]; ok {
		return c
	}
	return name
}

// Names returns the distinct entity names referenced by the document.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Entities))
	for _, e := range d.Entities {
		names = append(names, e.Name)
	}
	return names
}

// TaxIDs returns the distinct tax ids carried by merged entities.
func (d *Document) TaxIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range d.Entities {
		if e.TaxID == "" || seen[e.TaxID] {
			continue
		}
		seen[e.TaxID] = true
		out = append(out, e.TaxID)
	}
	return out
}

func pick(kept, incoming model.ExtractedEntity) model.ExtractedEntity {
	replace := (incoming.TaxID != "" && kept.TaxID == "") ||
		len(incoming.Description) > len(kept.Description)
	winner, loser := kept, incoming
	if replace {
		winner, loser = incoming, kept
	}

	if winner.TaxID == "" {
		winner.TaxID = loser.TaxID
	}
	if len(loser.Description) > len(winner.Description) {
		winner.Description = loser.Description
	}
	if winner.Type == "" {
		winner.Type = loser.Type
	}
	winner.Aliases = mergeAliases(winner.Aliases, loser.Aliases)
	return winner
}

func mergeAliases(a, b []model.Alias) []model.Alias {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]model.Alias, 0, len(a)+len(b))
	for _, al := range append(append([]model.Alias{}, a...), b...) {
		k := strings.ToLower(al.Name) + "|" + string(al.Kind)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, al)
	}
	return out
}
