package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several deployments
// can share one Redis database.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "vtp:staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a Keyer that prepends prefix. A nil inner uses
// the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TransformKey returns the prefixed key of a transform result.
func (k *ScopedKeyer) TransformKey(programHash, projectHash string) string {
	return k.prefix + k.inner.TransformKey(programHash, projectHash)
}
