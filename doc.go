// Package refscope resolves variables and their references in TypeScript
// and JavaScript sources, the groundwork for rename, inline and extract
// refactorings.
//
// # Queries
//
// An [Engine] answers one query per call, each against freshly parsed
// files:
//
//   - [Engine.LocateVariable]: find a declaration by name in a file and
//     list the usages that bind to it.
//   - [Engine.LocateAt]: the same, starting from a location string such as
//     "[src/a.ts 3:5-3:10]".
//   - [Engine.FindReferences] and [Engine.FindReferencesByName]: find
//     references across every file of the project the target belongs to.
//   - [Engine.Check]: report syntax errors that would block the queries
//     above.
//
// # Resolution
//
// Scopes are functions, blocks and the file itself. Within a file, an
// identifier refers to a declaration when it sits in the declaration's
// scope and no closer declaration of the same name intervenes. Across
// files, references come from a symbol index that follows static ES
// imports, and from a structural search for destructured runtime module
// loads:
//
//	const { foo } = require('./a')
//	const { foo: run } = await import('./a')
//
// Which calls count as module loads is configurable by name, and by a
// Risor predicate script for anything more involved.
//
// # Usage
//
//	e, err := refscope.New(refscope.WithWorkDir("path/to/project"))
//	if err != nil { ... }
//
//	ctx := context.Background()
//	res, err := e.LocateVariable(ctx, "src/a.ts", "total")
//	refs, err := e.FindReferences(ctx, "[src/a.ts 3:7-3:12]")
package refscope
