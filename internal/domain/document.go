package domain

// DocTypeEmployeeProfile is the per-employee summary document type.
const DocTypeEmployeeProfile = "employee_profile"

// Document is one flat text unit produced by the formatter, ready for
// embedding and storage. Owner is the identifier the document is stored
// under; Metadata values are scalars only.
type Document struct {
	ID       string
	DocType  string
	Owner    string
	Text     string
	Metadata map[string]any
}

// Vector pairs a document's embedding with its storage metadata.
type Vector struct {
	ID       string
	Values   []float64
	Metadata map[string]any
}

// IndexStats describes the state of a vector index after upload.
type IndexStats struct {
	TotalVectors int
	Dimension    int
	Namespaces   int
}

// NamespaceFor derives the isolation key an employee's vectors live under.
func NamespaceFor(identifier string) string {
	return "employee_" + identifier
}
