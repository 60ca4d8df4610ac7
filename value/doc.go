// Package value holds the dynamic configuration tree and the machinery that
// turns it into statically-typed Go values.
//
// The tree (Value) is a closed union over seven kinds: null, boolean,
// integer, float, string, array, and object. Format adapters normalize every
// parsed document into this shape; nothing here ever touches raw text.
//
// Three layers consume the tree:
//   - Extract/Decode: type-directed extraction with exact kind matching,
//     range-checked integer narrowing, and fully qualified error paths such
//     as "database.servers[2].port".
//   - Visitor/Dispatch: ad hoc decoding with one callback per kind, pull
//     views over arrays and objects, and embeddable defaults (VisitorBase).
//   - The schema compiler: a reflection walk over struct fields and `prefer`
//     tags, compiled once per type and cached, honoring the attribute ladder
//     skip, flatten, required, default=literal, bare default, optional.
//
// Interface-typed fields decode through the enum registry: RegisterTagged
// resolves variants by a discriminator field, RegisterUntagged probes
// variants in registration order. Registration is explicit and happens at
// process start.
package value
