// Package textutil provides the text processing primitives the summarization
// fallback builds on: tokenization, sentence segmentation, term-frequency
// vectors with optional IDF weighting, and cosine similarity for redundancy
// filtering.
//
// Tokenization lowercases text, splits on non-alphanumeric characters, and
// filters tokens shorter than 3 characters. Sentence segmentation is
// punctuation-driven and deliberately simple; transcripts rarely carry the
// abbreviation density that trips naive splitters.
package textutil
