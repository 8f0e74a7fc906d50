package store

// Symbol kinds.
const (
	KindVariable  = "variable"
	KindParameter = "parameter"
)

// Import kinds.
const (
	ImportNamed     = "named"
	ImportNamespace = "namespace"
	ImportDefault   = "default"
)

// Resolution kinds recorded on resolved references.
const (
	ResolutionDeclaration = "declaration"
	ResolutionLexical     = "lexical"
	ResolutionImport      = "import"
	ResolutionNamespace   = "namespace"
)

type File struct {
	ID        int64
	Path      string
	Language  string
	LineCount int
}

// Symbol is a declaration. NodeID addresses the declaration node inside
// the parsed file. ExportName is the name importers use, which differs
// from Name for `export { a as b }`.
type Symbol struct {
	ID         int64
	FileID     int64
	Name       string
	Kind       string
	Exported   bool
	ExportName string
	NodeID     int32
	StartByte  int
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
}

type Import struct {
	ID             int64
	FileID         int64
	Source         string
	ResolvedFileID *int64
	ImportedName   *string
	LocalAlias     *string
	Kind           string
	NodeID         int32
}

// Reference is an identifier occurrence. NodeID addresses the identifier.
type Reference struct {
	ID        int64
	FileID    int64
	NodeID    int32
	Name      string
	StartByte int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Context   string
}

type ResolvedReference struct {
	ID             int64
	ReferenceID    int64
	TargetSymbolID int64
	ResolutionKind string
}
