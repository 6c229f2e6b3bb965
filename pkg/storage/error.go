package storage

// NotFoundError is returned when a memory doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "memory not found"
	}

	return "memory not found: " + e.ID
}

// DuplicateError is returned when creating a memory whose id is taken.
type DuplicateError struct {
	ID string
}

func (e DuplicateError) Error() string {
	return "memory already exists: " + e.ID
}
