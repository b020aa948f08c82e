// Package ocr recognizes text on rectified pages using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). It runs
// downstream of the rectification pipeline; ShouldRecognize gates it on the
// pipeline's quality verdict.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// The default language is English ("eng").
package ocr
