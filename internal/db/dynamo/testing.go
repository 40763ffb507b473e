package dynamo

// NewStoreForTest creates a Store with the provided API client (test-only).
func NewStoreForTest(api API, table string, pageSize int32) *Store {
	return newStore(api, table, pageSize)
}
