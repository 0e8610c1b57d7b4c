package sweep

// Sequence hands out consecutive job sequence numbers within one campaign.
type Sequence struct {
	next int
}

// NewSequence returns a Sequence whose first value is start.
func NewSequence(start int) *Sequence {
	return &Sequence{next: start}
}

// Next returns the current value and advances.
func (s *Sequence) Next() int {
	n := s.next
	s.next++
	return n
}

