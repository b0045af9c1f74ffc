// Package archive decodes downloaded packages and writes their contents
// to an install directory.
//
// # Formats
//
// Two container formats are supported:
//
//   - Gzip-compressed tape archives (.unitypackage, .tar.gz). These are
//     read by TarReader, a small streaming parser for the 512-byte
//     block layout. Only regular files and directories are materialized;
//     links, PAX/GNU extension headers and device entries are skipped.
//   - Zip archives, read with klauspost/compress/zip.
//
// # Grouped layouts
//
// Editor packages do not store files under their final names. Each
// asset lives in a synthetic folder that holds a "pathname" file (the
// logical destination), an "asset" file (the payload) and an optional
// "asset.meta" sidecar. A Grouping turns a staged copy of those folders
// back into logical Assets; PathnameGrouping implements that layout.
//
// # Containment
//
// Every path taken from an archive goes through SafeJoin before anything
// is written. Entries that would land outside the destination root are
// logged and skipped, never written.
//
// # Usage
//
//	stats, err := archive.ExtractUnityPackage(pkgPath, targetDir, archive.UnityOptions{
//	    Grouping: archive.PathnameGrouping{Root: "Assets/"},
//	    Log:      logger,
//	})
package archive
