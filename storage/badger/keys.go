package badger

import "fmt"

// Key prefixes for different data types
const (
	indexPrefix      = "vecidx"
	vectorPrefix     = "vecrec"
	checkpointPrefix = "chkpt"
)

// makeIndexKey generates a key for an index descriptor.
func makeIndexKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", indexPrefix, name))
}

// makeVectorKey generates a key for a vector.
// Format: prefix:len(index):index:len(namespace):namespace:id
// Index and namespace are length prefixed so names containing ':' cannot
// collide with another index or namespace.
func makeVectorKey(index, namespace, id string) []byte {
	return append(makeNamespacePrefix(index, namespace), id...)
}

// makeNamespacePrefix generates the key prefix shared by every vector in a namespace.
// Format: prefix:len(index):index:len(namespace):namespace:
func makeNamespacePrefix(index, namespace string) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s:%d:%s:", vectorPrefix, len(index), index, len(namespace), namespace))
}

// makeCheckpointKey generates a key for a named checkpoint.
func makeCheckpointKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, name))
}
