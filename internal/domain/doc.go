// Package domain defines the core types of the portfolio API.
//
// Types in this package are pure value objects: no database handles, no
// HTTP concerns, no imports from other internal/ packages. Validation
// methods are allowed because they are pure functions on the type.
package domain
