package syntax

// Kind is the closed set of node categories the engine distinguishes.
// Grammar node types that the engine does not care about map to KindOther;
// the raw type stays available on Node.Type.
type Kind uint8

const (
	KindOther Kind = iota
	KindProgram
	KindFunction
	KindBlock
	KindVariableDeclarator
	KindParameter
	KindIdentifier
	KindProperty
	KindAssignment
	KindAugmentedAssignment
	KindBinary
	KindUpdate
	KindCall
	KindArguments
	KindMember
	KindString
	KindTemplateSubstitution
	KindParenthesized
	KindObjectPattern
	KindPairPattern
	KindImport
	KindImportSpecifier
	KindNamespaceImport
	KindExport
	KindExportSpecifier
	KindAwait
	KindError
)

var kindNames = [...]string{
	KindOther:                "other",
	KindProgram:              "program",
	KindFunction:             "function",
	KindBlock:                "block",
	KindVariableDeclarator:   "variable_declarator",
	KindParameter:            "parameter",
	KindIdentifier:           "identifier",
	KindProperty:             "property",
	KindAssignment:           "assignment",
	KindAugmentedAssignment:  "augmented_assignment",
	KindBinary:               "binary",
	KindUpdate:               "update",
	KindCall:                 "call",
	KindArguments:            "arguments",
	KindMember:               "member",
	KindString:               "string",
	KindTemplateSubstitution: "template_substitution",
	KindParenthesized:        "parenthesized",
	KindObjectPattern:        "object_pattern",
	KindPairPattern:          "pair_pattern",
	KindImport:               "import",
	KindImportSpecifier:      "import_specifier",
	KindNamespaceImport:      "namespace_import",
	KindExport:               "export",
	KindExportSpecifier:      "export_specifier",
	KindAwait:                "await",
	KindError:                "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var typeToKind = map[string]Kind{
	"program":                               KindProgram,
	"function_declaration":                  KindFunction,
	"function_expression":                   KindFunction,
	"function":                              KindFunction,
	"generator_function_declaration":        KindFunction,
	"generator_function":                    KindFunction,
	"arrow_function":                        KindFunction,
	"method_definition":                     KindFunction,
	"statement_block":                       KindBlock,
	"variable_declarator":                   KindVariableDeclarator,
	"required_parameter":                    KindParameter,
	"optional_parameter":                    KindParameter,
	"identifier":                            KindIdentifier,
	"shorthand_property_identifier":         KindIdentifier,
	"shorthand_property_identifier_pattern": KindIdentifier,
	"property_identifier":                   KindProperty,
	"assignment_expression":                 KindAssignment,
	"augmented_assignment_expression":       KindAugmentedAssignment,
	"binary_expression":                     KindBinary,
	"update_expression":                     KindUpdate,
	"call_expression":                       KindCall,
	"arguments":                             KindArguments,
	"member_expression":                     KindMember,
	"string":                                KindString,
	"template_substitution":                 KindTemplateSubstitution,
	"parenthesized_expression":              KindParenthesized,
	"object_pattern":                        KindObjectPattern,
	"pair_pattern":                          KindPairPattern,
	"import_statement":                      KindImport,
	"import_specifier":                      KindImportSpecifier,
	"namespace_import":                      KindNamespaceImport,
	"export_statement":                      KindExport,
	"export_specifier":                      KindExportSpecifier,
	"await_expression":                      KindAwait,
	"ERROR":                                 KindError,
}

// KindOf maps a grammar node type to its Kind.
func KindOf(nodeType string) Kind {
	if k, ok := typeToKind[nodeType]; ok {
		return k
	}
	return KindOther
}
