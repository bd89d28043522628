package cuelist

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// CueList stores a set of cues keyed by ID. It is not safe for concurrent use; the
// scheduler that owns it serializes access.
type CueList struct {
	cues map[int64]Cue
}

func NewCueList(cues ...Cue) *CueList {
	cl := &CueList{
		cues: make(map[int64]Cue, len(cues)),
	}
	for _, c := range cues {
		cl.cues[c.ID] = c.Clone()
	}
	return cl
}

// Has reports whether a cue with the given ID is present.
func (cl *CueList) Has(id int64) bool {
	_, found := cl.cues[id]
	return found
}

func (cl *CueList) Get(id int64) (Cue, bool) {
	c, found := cl.cues[id]
	return c.Clone(), found
}

// Put inserts or replaces the cue with the same ID.
func (cl *CueList) Put(c Cue) {
	cl.cues[c.ID] = c.Clone()
}

// Remove deletes the cue and reports whether it was present.
func (cl *CueList) Remove(id int64) bool {
	if _, found := cl.cues[id]; !found {
		return false
	}
	delete(cl.cues, id)
	return true
}

// Len returns the number of cues in the list
func (cl *CueList) Len() int {
	return len(cl.cues)
}

// MaxID returns the highest ID in the list, or zero when it is empty.
func (cl *CueList) MaxID() int64 {
	var max int64
	for id := range cl.cues {
		if id > max {
			max = id
		}
	}
	return max
}

// All returns copies of the cues ordered by ID.
func (cl *CueList) All() []Cue {
	ids := maps.Keys(cl.cues)
	slices.Sort(ids)

	out := make([]Cue, 0, len(ids))
	for _, id := range ids {
		out = append(out, cl.cues[id].Clone())
	}
	return out
}
