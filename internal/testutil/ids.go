package testutil

// FixedIDGenerator returns the same pipeline ID every time.
//
// Golden traces stay byte-identical across runs when every pipeline and
// observer carries the same ID.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id.
// If id is empty, Generate returns "test-pipeline".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-pipeline"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID. Implements flow.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
