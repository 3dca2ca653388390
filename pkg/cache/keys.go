package cache

// Keyer derives cache keys. Keys embed a version so that a change in the
// result encoding never reads stale entries.
type Keyer interface {
	// TransformKey returns the key of a transform result.
	TransformKey(programHash, projectHash string) string
}

// keyVersion changes whenever cached result encodings change.
const keyVersion = "v1"

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// TransformKey hashes both content hashes into one key.
func (DefaultKeyer) TransformKey(programHash, projectHash string) string {
	return hashKey("transform:"+keyVersion, programHash, projectHash)
}
