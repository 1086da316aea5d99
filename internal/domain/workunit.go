package domain

import "fmt"

// Partition of one geography's stop file handled by one worker for one pass.
type WorkUnit struct {
	State     string
	Geography string
	Partition int
	Pass      int
	Path      string
	Travelers int
}

func (w WorkUnit) String() string {
	return fmt.Sprintf("%s/%s#%d@%d", w.State, w.Geography, w.Partition, w.Pass)
}
