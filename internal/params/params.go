package params

const (
	// SecParam is the computational security parameter κ.
	SecParam = 256
	SecBytes = SecParam / 8

	// StatParam is the statistical security parameter.
	StatParam = 80

	// ChallengeBytes is the number of uniform bytes reduced into a single
	// challenge. Must cover ⌈log₂|challenge space|⌉ bits so that the
	// bytes-to-challenge mapping is injective almost everywhere.
	ChallengeBytes = SecBytes

	// HashBytes is the output length of the digest used for commitments.
	HashBytes = 2 * SecBytes
)
