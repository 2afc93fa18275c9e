package types

import (
	"sync"
)

// ResultMap wraps sync.Map with type safety
// maps collection request id -> CollectionResult
type ResultMap struct {
	internal sync.Map
}

func NewResultMap() *ResultMap {
	return &ResultMap{
		internal: sync.Map{},
	}
}

// Load loads the collection result for a specific request id
func (rm *ResultMap) Load(key string) (value *CollectionResult, ok bool) {
	internalResult, ok := rm.internal.Load(key)
	if !ok {
		return nil, ok
	}
	return internalResult.(*CollectionResult), ok
}

func (rm *ResultMap) Delete(key string) {
	rm.internal.Delete(key)
}

// Store stores the collection result for a specific request id
func (rm *ResultMap) Store(key string, value *CollectionResult) {
	rm.internal.Store(key, value)
}
