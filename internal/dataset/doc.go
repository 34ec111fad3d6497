// Package dataset loads plate labels, resolves them to image files and
// partitions the survivors into train, test and eval sets.
//
// # Flow
//
//	Load ──▶ Filter (Resolver + existence check) ──▶ Splitter
//
// Load reads a JSON array of {text, image_path} objects. Records with
// missing or malformed fields are skipped and logged with their index.
//
// The Resolver maps a declared image path onto a candidate file in one flat
// image directory. It applies an ordered list of (substring, prefix) rules,
// and the first matching rule wins. The Filter keeps only records whose
// candidate file exists (and, optionally, decodes as an image). Missing
// files are logged and skipped. They never fail the run.
//
// The Splitter partitions the filtered records with a seeded shuffle. The
// same seed and the same input order always produce the same partition.
//
// # Errors
//
// Fatal conditions are reported through the sentinels in errors.go so that
// callers can map them onto exit statuses with errors.Is.
package dataset
