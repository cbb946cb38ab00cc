// Package fingerprint computes content-addressed identities for runs.
//
// A run is identified by its parameters, seed, initial population and
// contact table. The inputs are rendered as RFC 8785 canonical JSON and
// hashed with SHA-256 under a versioned domain prefix, so the same run
// produces the same fingerprint on every machine.
//
// Floats are encoded as their shortest round-tripping decimal string
// (strconv 'g', -1) rather than JSON numbers. This keeps the encoding
// independent of any JSON library's float formatting.
package fingerprint
