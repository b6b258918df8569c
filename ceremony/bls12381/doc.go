/*
Package bls12381 implements the ceremony Engine over the BLS12-381 curve using
gnark-crypto. The three pairing checks are batched with random linear
combinations so a shard of n powers costs two multi-exponentiations and one
two-pair Miller loop per check instead of n pairings.

It also provides the participant side of the protocol: AddEntropy turns 32
bytes of secret entropy into a full contribution (scaled powers, pot pubkey
and BLS identity signature), which the tests and client tooling use.
*/
package bls12381
