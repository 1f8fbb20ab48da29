package engine

import (
	"sort"
	"unicode/utf8"

	"quill/internal/domain/models"
)

// Reconstruct folds an edit set into document content under the given
// policy. It is a pure function: two readers folding the same set converge
// on the same content regardless of the order edits arrived in.
func Reconstruct(edits []models.DocumentEdit, policy models.ConflictPolicy) string {
	if len(edits) == 0 {
		return ""
	}

	ordered := make([]models.DocumentEdit, len(edits))
	copy(ordered, edits)

	switch policy {
	case models.PolicyAutoMerge:
		sortByTimestamp(ordered)
		return foldRebased(ordered)
	case models.PolicyLastWriteWins:
		sortByVersion(ordered)
		return foldLastWriteWins(ordered)
	default:
		sortByVersion(ordered)
		return fold(ordered)
	}
}

// sortByVersion orders by (version, timestamp, seq, id). Timestamps have
// clock granularity, so the acceptance sequence breaks ties in submission
// order; the id is a last resort for records persisted without one.
func sortByVersion(edits []models.DocumentEdit) {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Version != edits[j].Version {
			return edits[i].Version < edits[j].Version
		}
		if !edits[i].Timestamp.Equal(edits[j].Timestamp) {
			return edits[i].Timestamp.Before(edits[j].Timestamp)
		}
		if edits[i].Seq != edits[j].Seq {
			return edits[i].Seq < edits[j].Seq
		}
		return edits[i].ID < edits[j].ID
	})
}

// sortByTimestamp orders by (timestamp, seq, id).
func sortByTimestamp(edits []models.DocumentEdit) {
	sort.SliceStable(edits, func(i, j int) bool {
		if !edits[i].Timestamp.Equal(edits[j].Timestamp) {
			return edits[i].Timestamp.Before(edits[j].Timestamp)
		}
		if edits[i].Seq != edits[j].Seq {
			return edits[i].Seq < edits[j].Seq
		}
		return edits[i].ID < edits[j].ID
	})
}

// fold applies edits in order. Edits that no longer fit the accumulated
// content are skipped rather than truncated; skipping is deterministic, so
// convergence holds.
func fold(edits []models.DocumentEdit) string {
	content := ""
	for i := range edits {
		content = splice(content, &edits[i], edits[i].Position)
	}
	return content
}

// foldRebased applies edits in timestamp order, shifting each edit proposed
// against an older version by the net length delta that later-stamped,
// already-applied edits introduced at or before its position. Best effort:
// overlapping concurrent edits can still merge into something a human would
// not have written.
func foldRebased(edits []models.DocumentEdit) string {
	type applied struct {
		position int
		version  int
		delta    int
	}

	content := ""
	var history []applied
	for i := range edits {
		e := &edits[i]
		position := e.Position
		for _, a := range history {
			if a.version > e.Version && a.position <= position {
				position += a.delta
			}
		}
		if position < 0 {
			position = 0
		}

		before := utf8.RuneCountInString(content)
		content = splice(content, e, position)
		history = append(history, applied{
			position: position,
			version:  e.Version,
			delta:    utf8.RuneCountInString(content) - before,
		})
	}
	return content
}

// foldLastWriteWins applies edits in order but skips any delete or replace
// whose range is superseded by a strictly later insert or replace touching
// the same range. Inserts are never skipped; they create the content that
// later writes compete over. Skipped edits stay in the log; only the
// reconstruction ignores them.
func foldLastWriteWins(edits []models.DocumentEdit) string {
	content := ""
	for i := range edits {
		if edits[i].Type != models.EditInsert && supersededBy(edits, i) {
			continue
		}
		content = splice(content, &edits[i], edits[i].Position)
	}
	return content
}

// supersededBy reports whether a later insert/replace overlaps edit i's range.
func supersededBy(edits []models.DocumentEdit, i int) bool {
	for j := i + 1; j < len(edits); j++ {
		switch edits[j].Type {
		case models.EditInsert, models.EditReplace:
			if edits[i].Overlaps(&edits[j]) {
				return true
			}
		}
	}
	return false
}

// splice applies one edit at the given position, or returns content
// unchanged when the edit falls outside it. Position and length count
// characters; splicing bytes would cut multi-byte runes in half.
func splice(content string, e *models.DocumentEdit, position int) string {
	runes := []rune(content)
	if position < 0 || position > len(runes) {
		return content
	}

	switch e.Type {
	case models.EditInsert:
		return string(runes[:position]) + e.Content + string(runes[position:])
	case models.EditDelete:
		if position+e.Length > len(runes) {
			return content
		}
		return string(runes[:position]) + string(runes[position+e.Length:])
	case models.EditReplace:
		if position+e.Length > len(runes) {
			return content
		}
		return string(runes[:position]) + e.Content + string(runes[position+e.Length:])
	}
	return content
}
