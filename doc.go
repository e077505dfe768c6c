// Package shelfd implements an ownership-aware catalog service.
//
// A catalog is a flat collection of records (books, artworks, ...), each
// carrying a couple of text fields, an optional owner identity and a
// reference to one uploaded image asset. The package is organized around
// three seams:
//
//   - RecordRepo: durable storage for the record collection. Backends live
//     in jsonstore (single JSON file rewritten wholesale) and database
//     (sqlite/postgres), all satisfying the same contract.
//   - AssetStore: lifecycle of the uploaded binary, independent of the
//     record's text fields. Backends live in the assets package.
//   - CatalogService: orchestrates the two plus the ownership filter to
//     implement the list/get/create/update/delete use cases.
//
// The HTTP surface is in the http sub-package, configuration in config,
// and the runnable server in cmd/shelfd.
//
// Identity is an opaque caller-supplied string, never authenticated here.
// Records without an owner are public: visible to everyone and, by default
// policy, mutable by no one.
package shelfd
