package status

import "sort"

// Active tracks one applied status on a combatant.
type Active struct {
	Def Def `json:"def"`
	// Remaining is the number of owner turn starts left; -1 means until removed.
	Remaining int `json:"remaining"`
}

// Set tracks all statuses currently applied to one combatant, keyed by ID.
// It is not safe for concurrent use.
type Set map[string]Active

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id, a := range s {
		out[id] = a
	}
	return out
}

// Apply adds def or refreshes it if already present. duration <= 0 falls
// back to def.Duration; a zero def.Duration makes the status last until removed.
//
// Precondition: s must be non-nil.
// Postcondition: Has(def.ID) is true; on re-apply Remaining is the longer of
// the existing and new durations.
func (s Set) Apply(def Def, duration int) {
	if duration <= 0 {
		duration = def.Duration
	}
	if duration <= 0 {
		duration = -1
	}
	if existing, ok := s[def.ID]; ok {
		if existing.Remaining < 0 || (duration > 0 && duration <= existing.Remaining) {
			return
		}
	}
	s[def.ID] = Active{Def: def, Remaining: duration}
}

// Remove deletes the status with id. Removing an absent status is a no-op.
func (s Set) Remove(id string) {
	delete(s, id)
}

// Has reports whether the status with id is active.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Tick decrements every timed status by one and removes those that reach zero.
// Called at the start of the owner's turn.
//
// Postcondition: For every id in the returned slice, Has(id) is false.
func (s Set) Tick() []string {
	var expired []string
	for id, a := range s {
		if a.Remaining < 0 {
			continue
		}
		a.Remaining--
		if a.Remaining <= 0 {
			expired = append(expired, id)
			delete(s, id)
			continue
		}
		s[id] = a
	}
	sort.Strings(expired)
	return expired
}

// ConsumeOnHit removes every status flagged ExpiresOnHit and returns their ids.
func (s Set) ConsumeOnHit() []string {
	var consumed []string
	for id, a := range s {
		if a.Def.ExpiresOnHit {
			consumed = append(consumed, id)
			delete(s, id)
		}
	}
	sort.Strings(consumed)
	return consumed
}

// IDs returns the active status ids in sorted order.
func (s Set) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
