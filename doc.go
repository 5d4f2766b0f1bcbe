// Package safeunzip extracts untrusted ZIP and TAR (optionally
// gzip-compressed) archives into a destination directory while defending
// against path traversal ("Zip Slip"), decompression bombs, symlink
// escapes, TOCTOU races on file creation, setuid escalation, filename
// confusion, and malformed entry types.
//
// Security is the default: every extraction runs through the same
// filename sanitizer, path jail, and policy chain regardless of
// configuration. Callers tune behavior with functional options passed to
// New or NewOrCreate; they cannot disable the fixed security checks.
//
//	driver, err := safeunzip.New("/var/data/uploads",
//		safeunzip.WithOverwriteMode(safeunzip.OverwriteReplace),
//		safeunzip.WithLogger(logrus.StandardLogger()),
//	)
//	if err != nil {
//		return err
//	}
//	report, err := driver.ExtractZipFile("/tmp/upload.zip")
package safeunzip
