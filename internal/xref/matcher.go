package xref

import (
	"context"
	"slices"
)

// DynamicImportCallee is the callee name reported for `import(...)`.
const DynamicImportCallee = "import"

// LoaderCall describes a call whose first string argument might name a
// module.
type LoaderCall struct {
	Callee    string // identifier or dotted member text of the callee
	Specifier string // first string argument, unquoted
	File      string // path of the calling file
}

// LoaderMatcher decides whether a call loads a module at runtime.
type LoaderMatcher interface {
	IsLoaderCall(ctx context.Context, call LoaderCall) (bool, error)
}

// NameMatcher matches calls by callee name.
type NameMatcher struct {
	Functions     []string
	DynamicImport bool
}

func (m NameMatcher) IsLoaderCall(_ context.Context, call LoaderCall) (bool, error) {
	if call.Callee == DynamicImportCallee {
		return m.DynamicImport, nil
	}
	return slices.Contains(m.Functions, call.Callee), nil
}

// AnyMatcher matches when any of its matchers does, asking them in order.
type AnyMatcher []LoaderMatcher

func (m AnyMatcher) IsLoaderCall(ctx context.Context, call LoaderCall) (bool, error) {
	for _, lm := range m {
		ok, err := lm.IsLoaderCall(ctx, call)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
