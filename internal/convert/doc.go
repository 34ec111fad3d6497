// Package convert turns delimited split files into the recognizer
// toolkit's label format.
//
// Two converters are provided:
//
//   - Exec runs the toolkit's own gen_label script as a subprocess:
//     {python} {script} --mode={mode} --input_path={in} --output_label={out}
//   - Native does the rec-mode conversion in process. Each line is split on
//     its last delimiter and rewritten as "path<TAB>label".
//
// WithFallback wraps either one. When the inner converter fails it copies
// the input file verbatim to the output, logs a warning and reports
// Result.FellBack. The run continues with a file that is at least
// readable, matching how the toolkit accepts comma-delimited lists.
package convert
