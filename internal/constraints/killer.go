package constraints

import "log/slog"

// ResolveKillers removes killers and every constraint whose id was killed.
//
// All killers are collected first and applied in a second pass, so the result
// does not depend on where a killer appears in the list. A kill id that
// matches no constraint is ignored: a composed pipeline may apply the same
// killer whether or not the upstream constraint was added.
func ResolveKillers(items []Item) (kept []Constraint, killed []ID) {
	kills := make(map[ID]bool)
	for _, item := range items {
		if k, ok := item.(Killer); ok {
			if !kills[k.Kill] {
				killed = append(killed, k.Kill)
			}
			kills[k.Kill] = true
		}
	}

	matched := make(map[ID]bool, len(kills))
	for _, item := range items {
		c, ok := item.(Constraint)
		if !ok {
			continue
		}
		if id := c.header().ID; id != "" && kills[id] {
			matched[id] = true
			slog.Debug("Constraint killed", "id", id, "type", c.Kind())
			continue
		}
		kept = append(kept, c)
	}

	for _, id := range killed {
		if !matched[id] {
			slog.Debug("Kill id matched no constraint", "id", id)
		}
	}
	return kept, killed
}
