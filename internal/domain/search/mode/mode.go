package mode

// Mode is the retrieval strategy.
type Mode string

// Retrieval mode constants.
const (
	// Hybrid fans out to both indices and fuses the ranked lists.
	Hybrid Mode = "hybrid"
	// Sparse forces the lexical branch only (diagnostics, no embedding call).
	Sparse Mode = "sparse"
	// Dense forces the vector branch only.
	Dense Mode = "dense"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Sparse || m == Dense
}
