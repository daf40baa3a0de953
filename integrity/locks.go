package integrity

import "sync"

// lockTable hands out one mutex per file id so compare-and-update
// sequences on the same file never interleave. Entries are
// reference counted and removed as soon as the last holder lets
// go, so the table stays small no matter how many files pass
// through the engine.
type lockTable struct {
	mutex sync.Mutex
	locks map[string]*fileLock
}

type fileLock struct {
	mutex sync.Mutex
	refs  int
}

func newLockTable() *lockTable {
	return &lockTable{
		locks: make(map[string]*fileLock),
	}
}

// Lock blocks until the caller holds the lock for key and returns
// the matching unlock function. Call it exactly once.
func (table *lockTable) Lock(key string) func() {
	table.mutex.Lock()
	lock := table.locks[key]
	if lock == nil {
		lock = &fileLock{}
		table.locks[key] = lock
	}
	lock.refs++
	table.mutex.Unlock()

	lock.mutex.Lock()
	return func() {
		lock.mutex.Unlock()
		table.mutex.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(table.locks, key)
		}
		table.mutex.Unlock()
	}
}

func (table *lockTable) size() int {
	table.mutex.Lock()
	defer table.mutex.Unlock()
	return len(table.locks)
}
