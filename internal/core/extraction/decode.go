package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chal0326/researchcms/internal/core/common"
	"github.com/chal0326/researchcms/internal/core/model"
)

// ErrMalformed marks a record that failed validation.
var ErrMalformed = errors.New("malformed record")

type rawResponse struct {
	Entities      []json.RawMessage `json:"entities"`
	Relationships []json.RawMessage `json:"relationships"`
	Events        []json.RawMessage `json:"events"`
}

// flexString accepts JSON strings, numbers and null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts JSON numbers and numeric strings; anything else is zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

type rawAlias struct {
	Name flexString `json:"name"`
	Type flexString `json:"type"`
}

type rawEntity struct {
	Name        flexString `json:"name"`
	Type        flexString `json:"type"`
	EIN         flexString `json:"ein"`
	Description flexString `json:"description"`
	Aliases     []rawAlias `json:"aliases"`
}

type rawRelationship struct {
	From        flexString `json:"from"`
	FromName    flexString `json:"from_name"`
	To          flexString `json:"to"`
	ToName      flexString `json:"to_name"`
	Type        flexString `json:"type"`
	Description flexString `json:"description"`
}

type rawEvent struct {
	Year        flexInt      `json:"year"`
	Month       flexInt      `json:"month"`
	Day         flexInt      `json:"day"`
	Title       flexString   `json:"title"`
	Description flexString   `json:"description"`
	Entities    []flexString `json:"entities"`
	Mountains   []flexString `json:"mountains"`
	Convergence bool         `json:"convergence"`
}

// Decode repairs and parses a model response, then validates every record.
// Records failing validation are dropped and counted in Malformed.
func Decode(response string) (model.ChunkResult, error) {
	raw, err := common.ParseJSON[rawResponse](response)
	if err != nil {
		return model.ChunkResult{}, err
	}

	var out model.ChunkResult
	for _, msg := range raw.Entities {
		ent, err := decodeEntity(msg)
		if err != nil {
			out.Malformed++
			continue
		}
		out.Entities = append(out.Entities, ent)
	}
	for _, msg := range raw.Relationships {
		rel, err := decodeRelationship(msg)
		if err != nil {
			out.Malformed++
			continue
		}
		out.Relationships = append(out.Relationships, rel)
	}
	for _, msg := range raw.Events {
		ev, err := decodeEvent(msg)
		if err != nil {
			out.Malformed++
			continue
		}
		out.Events = append(out.Events, ev)
	}
	return out, nil
}

func decodeEntity(msg json.RawMessage) (model.ExtractedEntity, error) {
	var r rawEntity
	if err := json.Unmarshal(msg, &r); err != nil {
		return model.ExtractedEntity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	name := strings.TrimSpace(string(r.Name))
	if name == "" {
		return model.ExtractedEntity{}, fmt.Errorf("%w: entity without name", ErrMalformed)
	}

	ent := model.ExtractedEntity{
		Name:        name,
		Type:        strings.TrimSpace(string(r.Type)),
		TaxID:       common.NormalizeTaxID(string(r.EIN)),
		Description: strings.TrimSpace(string(r.Description)),
	}
	for _, a := range r.Aliases {
		aliasName := strings.TrimSpace(string(a.Name))
		if aliasName == "" {
			continue
		}
		kind := model.AliasAKA
		if strings.EqualFold(strings.TrimSpace(string(a.Type)), string(model.AliasDBA)) {
			kind = model.AliasDBA
		}
		ent.Aliases = append(ent.Aliases, model.Alias{Name: aliasName, Kind: kind})
	}
	return ent, nil
}

func decodeRelationship(msg json.RawMessage) (model.ExtractedRelationship, error) {
	var r rawRelationship
	if err := json.Unmarshal(msg, &r); err != nil {
		return model.ExtractedRelationship{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	from := firstNonEmpty(string(r.From), string(r.FromName))
	to := firstNonEmpty(string(r.To), string(r.ToName))
	if from == "" || to == "" {
		return model.ExtractedRelationship{}, fmt.Errorf("%w: relationship without endpoints", ErrMalformed)
	}
	return model.ExtractedRelationship{
		From:        from,
		To:          to,
		Type:        strings.TrimSpace(string(r.Type)),
		Description: strings.TrimSpace(string(r.Description)),
	}, nil
}

func decodeEvent(msg json.RawMessage) (model.ExtractedEvent, error) {
	var r rawEvent
	if err := json.Unmarshal(msg, &r); err != nil {
		return model.ExtractedEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	title := strings.TrimSpace(string(r.Title))
	if r.Year <= 0 || title == "" {
		return model.ExtractedEvent{}, fmt.Errorf("%w: event without year or title", ErrMalformed)
	}

	ev := model.ExtractedEvent{
		Year:        int(r.Year),
		Title:       title,
		Description: strings.TrimSpace(string(r.Description)),
		Convergence: r.Convergence,
	}
	if r.Month >= 1 && r.Month <= 12 {
		ev.Month = int(r.Month)
	}
	if r.Day >= 1 && r.Day <= 31 {
		ev.Day = int(r.Day)
	}
	for _, name := range r.Entities {
		if s := strings.TrimSpace(string(name)); s != "" {
			ev.Entities = append(ev.Entities, s)
		}
	}
	for _, m := range r.Mountains {
		if s := strings.TrimSpace(string(m)); s != "" {
			ev.Mountains = append(ev.Mountains, s)
		}
	}
	return ev, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
