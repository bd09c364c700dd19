package testutil

// FixedGenerator returns the same ID every time.
//
// Use it for heredoc delimiters and run IDs so that output files and the
// restoration log are byte-identical across test runs.
type FixedGenerator struct {
	id string
}

// NewFixedGenerator creates a generator. If id is empty, Generate returns
// "test-id-default".
func NewFixedGenerator(id string) *FixedGenerator {
	if id == "" {
		id = "test-id-default"
	}
	return &FixedGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedGenerator) Generate() string {
	return g.id
}
