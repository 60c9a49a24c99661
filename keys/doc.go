// Package keys manages the secp256k1 keys that sign deployment and cut
// transactions.
//
// Keys live on the local filesystem as hex-encoded private scalars, one root
// key per name and optional per-role keys derived deterministically from it,
// so one backed-up root recovers every operator account.
package keys
