package codec

// luaHash is the Lua 4 string hash. Names are bucketed by luaHash % hashSize.
func luaHash(s string) uint32 {
	n := len(s)
	h := uint32(n) //nolint:gosec // wraps like the on-disk hash
	step := (n >> 5) + 1
	for i := n; i >= step; i -= step {
		h ^= (h << 5) + (h >> 2) + uint32(s[i-1])
	}
	return h
}

// bucket returns the hash table slot for name.
func bucket(name string) uint32 {
	return luaHash(name) % hashSize
}
