// Package ocr reads plate text with Tesseract and audits a generated split
// against it.
//
// The audit is a baseline: before fine-tuning a recognizer on the prepared
// dataset, it shows how a stock engine does on the same images. Each image
// is preprocessed (grayscale, upscale, optional binarization, padding; see
// internal/imaging), recognized as a single text line and restricted to the
// plate alphabet.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//   - Windows: Download from https://github.com/UB-Mannheim/tesseract/wiki
//
// A non-standard data directory can be given with Tesseract.TessdataPrefix.
//
// # Scores
//
// Audit reports two numbers per split:
//
//   - exact match: the share of images whose normalized reading equals the
//     label
//   - CER: total edit distance over total label length, the usual
//     character error rate
//
// Recognition failures count as a miss with every label character wrong.
// They are logged and never stop the audit.
package ocr
