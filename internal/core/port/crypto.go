package port

// AccessCodeHasher hashes and verifies access codes using the configured algorithm.
type AccessCodeHasher interface {
	Hash(code string) (string, error)
	Verify(code string, encoded string) (bool, error)
}

// AccessCodeGenerator produces plaintext access codes.
type AccessCodeGenerator interface {
	Generate() (string, error)
}
