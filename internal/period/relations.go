package period

// Relation predicates. Each compares only the four boundary instants of a = p and b = q.

// Precedes holds when p ends strictly before q starts.
//
//	|--p--|
//	         |--q--|
func (p Period) Precedes(q Period) bool {
	return p.end.Before(q.start)
}

// Meets holds when p ends exactly where q starts.
//
//	|--p--|
//	      |--q--|
func (p Period) Meets(q Period) bool {
	return p.end.Equal(q.start)
}

// Overlaps holds when p starts first and q starts inside p and ends after it.
//
//	|--p--|
//	   |--q--|
func (p Period) Overlaps(q Period) bool {
	return p.start.Before(q.start) && p.end.Before(q.end) && q.start.Before(p.end)
}

// FinishedBy holds when p starts first and both end together.
//
//	|----p----|
//	    |--q--|
func (p Period) FinishedBy(q Period) bool {
	return p.start.Before(q.start) && p.end.Equal(q.end)
}

// Contains holds when q lies strictly inside p.
//
//	|----p----|
//	  |--q--|
func (p Period) Contains(q Period) bool {
	return p.start.Before(q.start) && q.end.Before(p.end)
}

// Starts holds when both start together and p ends first.
//
//	|--p--|
//	|----q----|
func (p Period) Starts(q Period) bool {
	return p.start.Equal(q.start) && p.end.Before(q.end)
}

// Equals holds when both bounds are the same instants, regardless of location.
//
//	|--p--|
//	|--q--|
func (p Period) Equals(q Period) bool {
	return p.start.Equal(q.start) && p.end.Equal(q.end)
}

// StartedBy holds when both start together and q ends first.
//
//	|----p----|
//	|--q--|
func (p Period) StartedBy(q Period) bool {
	return p.start.Equal(q.start) && q.end.Before(p.end)
}

// During holds when p lies strictly inside q.
//
//	  |--p--|
//	|----q----|
func (p Period) During(q Period) bool {
	return q.start.Before(p.start) && p.end.Before(q.end)
}

// Finishes holds when q starts first and both end together.
//
//	    |--p--|
//	|----q----|
func (p Period) Finishes(q Period) bool {
	return q.start.Before(p.start) && p.end.Equal(q.end)
}

// OverlappedBy holds when q starts first and p starts inside q and ends after it.
//
//	   |--p--|
//	|--q--|
func (p Period) OverlappedBy(q Period) bool {
	return q.start.Before(p.start) && q.end.Before(p.end) && p.start.Before(q.end)
}

// MetBy holds when q ends exactly where p starts.
//
//	      |--p--|
//	|--q--|
func (p Period) MetBy(q Period) bool {
	return q.end.Equal(p.start)
}

// PrecededBy holds when q ends strictly before p starts.
//
//	         |--p--|
//	|--q--|
func (p Period) PrecededBy(q Period) bool {
	return q.end.Before(p.start)
}
