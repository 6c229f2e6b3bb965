package memory

import "fmt"

// LoadError reports a failed fetch. The store keeps its previous state.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading memories: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
