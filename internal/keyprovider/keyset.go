package keyprovider

// AllowedKeySet is a deduplicated set of public-key strings in
// authorized_keys format, preserving first-seen order.
type AllowedKeySet struct {
	keys []string
	seen map[string]struct{}
}

func NewAllowedKeySet() *AllowedKeySet {
	return &AllowedKeySet{
		seen: map[string]struct{}{},
	}
}

func (set *AllowedKeySet) Add(key string) {
	if _, ok := set.seen[key]; ok {
		return
	}

	set.seen[key] = struct{}{}
	set.keys = append(set.keys, key)
}

func (set *AllowedKeySet) Keys() []string {
	return set.keys
}

func (set *AllowedKeySet) Len() int {
	return len(set.keys)
}

func (set *AllowedKeySet) Empty() bool {
	return len(set.keys) == 0
}
