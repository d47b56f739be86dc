package scheduling

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field keys reported back to the UI.
const (
	FieldTitle        = "titulo"
	FieldDescription  = "descripcion"
	FieldActivityDate = "fecha_actividad"
	FieldStartTime    = "hora_inicio"
	FieldEndTime      = "hora_fin"
	FieldModality     = "modalidad"
	FieldPlaces       = "lugares"
	FieldVirtualURL   = "url_virtual"
	FieldHeadcount    = "cupos"
	FieldStartDate    = "fecha_inicio"
	FieldEndDate      = "fecha_fin"
	FieldPlace        = "lugar"
)

// FieldError describes one user-correctable problem with a draft.
type FieldError struct {
	Field     string `json:"field"`
	Reason    string `json:"reason"`
	Requested *int   `json:"requested,omitempty"`
	Capacity  *int   `json:"capacity,omitempty"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// PlaceInfo is the slice of a place the rules need: who owns it and how many
// people fit. A nil Capacity means unconstrained.
type PlaceInfo struct {
	ID        uint
	CompanyID uint
	Name      string
	Capacity  *int
}

type errorList []FieldError

func (l *errorList) add(field, reason string) {
	*l = append(*l, FieldError{Field: field, Reason: reason})
}

func (l *errorList) addf(field, format string, args ...interface{}) {
	l.add(field, fmt.Sprintf(format, args...))
}

func (l *errorList) capacity(requested, capacity int) {
	*l = append(*l, FieldError{
		Field:     FieldHeadcount,
		Reason:    fmt.Sprintf("cupos (%d) exceden la capacidad del lugar (%d)", requested, capacity),
		Requested: &requested,
		Capacity:  &capacity,
	})
}

// foldKey lower-cases and strips accents so "Híbrido" and "hibrido" compare equal.
func foldKey(value string) string {
	// Chains hold buffers, so each call builds its own.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return folded
}

// dedupe keeps the first occurrence of every id, preserving order.
func dedupe(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// minCapacity returns the smallest capacity among the given places, ignoring
// unconstrained ones. ok is false when none of them has a capacity.
func minCapacity(ids []uint, places map[uint]PlaceInfo) (capacity int, ok bool) {
	for _, id := range ids {
		place, found := places[id]
		if !found || place.Capacity == nil {
			continue
		}
		if !ok || *place.Capacity < capacity {
			capacity = *place.Capacity
			ok = true
		}
	}
	return capacity, ok
}
