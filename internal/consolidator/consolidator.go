// Package consolidator collapses a buffered sequence of detector
// change events into the minimal set worth notifying on, absorbing
// the provider's ping-pong flapping between ticks.
package consolidator

import "github.com/tripwatch/tripwatch/internal/detector"

// Consolidate reduces events accumulated for one trip since the last
// dispatch pass, grouping by (kind, notification_type) and collapsing
// each group to at most one representative event.
func Consolidate(events []detector.ChangeEvent) []detector.ChangeEvent {
	if len(events) == 0 {
		return nil
	}

	type groupKey struct {
		kind             detector.Kind
		notificationType string
	}

	order := make([]groupKey, 0, len(events))
	groups := make(map[groupKey][]detector.ChangeEvent)
	for _, e := range events {
		k := groupKey{kind: e.Kind, notificationType: e.NotificationType}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	var result []detector.ChangeEvent
	for _, k := range order {
		if collapsed, ok := collapseGroup(groups[k]); ok {
			result = append(result, collapsed)
		}
	}
	return result
}

// collapseGroup reduces one (kind, notification_type) group to its
// representative event, or reports ok=false when the sequence is pure
// ping-pong (first and last value identical).
func collapseGroup(events []detector.ChangeEvent) (detector.ChangeEvent, bool) {
	first := events[0]
	last := events[len(events)-1]

	oldest := first.Old
	newest := last.New

	if oldest == newest {
		return detector.ChangeEvent{}, false
	}

	representative := detector.ChangeEvent{
		Kind:             first.Kind,
		Old:              oldest,
		New:              preferConcrete(oldest, newest, events),
		NotificationType: last.NotificationType,
	}
	return representative, true
}

// preferConcrete resolves the final "new" value for a collapsed group.
// A null (empty) to concrete transition is preferred over a concrete
// to null transition when choosing the representative end value — the
// last concrete value observed in the sequence wins.
func preferConcrete(oldest, newest string, events []detector.ChangeEvent) string {
	if newest != "" {
		return newest
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].New != "" {
			return events[i].New
		}
	}
	return newest
}
