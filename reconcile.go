package layercfg

import (
	"cmp"
	"slices"
)

// Reconcile attaches every available layer that has no parameter yet. New
// parameters are application-controlled, or excluded when their name is in
// excluded, and start with a private copy of the layer defaults. Existing
// parameters are never reordered or removed, so calling Reconcile again with
// the same input adds nothing. When two available layers share a name the
// first one wins; pass the catalog strongest first.
//
// The number of parameters added is returned.
func Reconcile(cfg *Configuration, available []*Layer, excluded []string) int {
	if cfg == nil {
		return 0
	}
	added := 0
	for _, layer := range available {
		if layer == nil || cfg.FindParameter(layer.Name) >= 0 {
			continue
		}
		param := NewParameter(layer)
		if slices.Contains(excluded, layer.Name) {
			param.State = StateExcluded
		}
		cfg.Parameters = append(cfg.Parameters, param)
		added++
	}
	if added > 0 {
		normalizeRanks(cfg)
	}
	return added
}

// Collapse drops application-controlled parameters. This is the persisted
// form; reconcile again after loading to regenerate them.
func Collapse(cfg *Configuration) {
	if cfg == nil {
		return
	}
	cfg.Parameters = slices.DeleteFunc(cfg.Parameters, func(p Parameter) bool {
		return !p.State.Ranked()
	})
	normalizeRanks(cfg)
}

// normalizeRanks rewrites ranks from sequence order: ranked parameters get
// 0..k-1, the rest get k.
func normalizeRanks(cfg *Configuration) {
	rank := 0
	for i := range cfg.Parameters {
		if cfg.Parameters[i].State.Ranked() {
			cfg.Parameters[i].Rank = rank
			rank++
		}
	}
	for i := range cfg.Parameters {
		if !cfg.Parameters[i].State.Ranked() {
			cfg.Parameters[i].Rank = rank
		}
	}
}

// sortByRank restores sequence order from persisted ranks. Unranked entries
// keep their relative order after the ranked ones.
func sortByRank(cfg *Configuration) {
	slices.SortStableFunc(cfg.Parameters, func(a, b Parameter) int {
		switch {
		case a.State.Ranked() && !b.State.Ranked():
			return -1
		case !a.State.Ranked() && b.State.Ranked():
			return 1
		case a.State.Ranked():
			return cmp.Compare(a.Rank, b.Rank)
		default:
			return 0
		}
	})
	normalizeRanks(cfg)
}

// SetState changes the state of the named parameter and re-derives ranks. It
// reports whether the state changed.
func SetState(cfg *Configuration, name string, state LayerState) bool {
	param, ok := cfg.Parameter(name)
	if !ok || param.State == state {
		return false
	}
	param.State = state
	normalizeRanks(cfg)
	return true
}

// MoveUp swaps the named parameter with the ranked parameter before it. It
// returns false when the parameter is absent, unranked or already first.
func MoveUp(cfg *Configuration, name string) bool {
	return move(cfg, name, -1)
}

// MoveDown swaps the named parameter with the ranked parameter after it. It
// returns false when the parameter is absent, unranked or already last.
func MoveDown(cfg *Configuration, name string) bool {
	return move(cfg, name, 1)
}

func move(cfg *Configuration, name string, step int) bool {
	i := cfg.FindParameter(name)
	if i < 0 || !cfg.Parameters[i].State.Ranked() {
		return false
	}
	j := i + step
	for j >= 0 && j < len(cfg.Parameters) && !cfg.Parameters[j].State.Ranked() {
		j += step
	}
	if j < 0 || j >= len(cfg.Parameters) {
		return false
	}
	params := cfg.Parameters
	params[i].Rank, params[j].Rank = params[j].Rank, params[i].Rank
	params[i], params[j] = params[j], params[i]
	return true
}
