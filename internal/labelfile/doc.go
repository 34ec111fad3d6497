// Package labelfile writes the delimited label files and the alphabet file
// the recognizer toolkit consumes.
//
// A split file has one record per line:
//
//	<quoted absolute image path><delimiter><label>\n
//
// The path is quoted only when it contains whitespace or starts with a quote
// character. QuotePOSIX wraps it in single quotes, QuoteWindows in double
// quotes; QuoteAuto picks by the running OS. Unquote accepts either form, so
// readers do not need to know which style produced a file.
//
// Files are written atomically by default: a temp file in the destination
// directory is flushed, fsynced and renamed over the target. A reader never
// sees a half-written split.
package labelfile
