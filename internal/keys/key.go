package keys

// RemoteKey mirrors one provisioned API key as reported by the remote
// listing. The listing is the sole authority on which keys exist; anything
// stored locally is a cache of what was last seen, never a source of truth.
type RemoteKey struct {
	Hash      string // opaque immutable identity
	Name      string // encoded identity label, see ParseName
	Label     string // remote-assigned label; doubles as the stored secret reference
	Limit     Limit
	Disabled  bool
	Usage     float64
	Cadence   Cadence
	CreatedAt string // passthrough from the remote service
}

// ProvisionedKey is a creation response: the key record plus the plaintext
// secret, which the remote service returns exactly once.
type ProvisionedKey struct {
	Key    RemoteKey
	Secret string
}
