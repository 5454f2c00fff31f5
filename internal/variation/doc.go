// Package variation resolves variation names to stored variations.
//
// Variations are created lazily: resolving an unknown name creates a root
// variation with that name. Parents are only set through SetParent, which
// refuses any link that would close a cycle, so the parent links always
// form a forest. Read paths use Chain to walk from a variation to its root.
package variation
