// Package install sequences authorization, download and extraction into
// one user-facing operation.
//
// An Installer run always starts a new authorization session, downloads
// the package it resolves to, and places the package contents into the
// project's package directory. When no package directory exists or the
// package cannot be decoded, the run hands the file to a native
// Importer instead and reports OutcomeFellBackToNativeImport. The
// downloaded file never outlives the run.
package install
