/*
Package ceremony implements the verifiable data structures of a powers-of-tau
trusted-setup ceremony: the Powers vectors, the append-only Transcript with its
per-contribution Witness, and the verification driver that decides whether a
candidate Contribution extends the current Powers by exactly one secret factor.

The package is deliberately curve-agnostic. Points are carried as opaque
compressed encodings (48 bytes for G1, 96 bytes for G2) and all cryptographic
work happens behind the Engine interface, so the protocol logic can be
exercised with a mock engine and the curve library can be swapped without
touching the transcript semantics. A concrete BLS12-381 engine lives in the
bls12381 subpackage.
*/
package ceremony
