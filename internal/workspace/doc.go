// Package workspace tracks the virtual branches applied to a repository and
// the upstream target they are measured against. Branch metadata is persisted
// as a JSON file under .git, and all mutation is serialized through an
// explicit write-permission guard.
package workspace
