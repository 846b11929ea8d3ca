// Package entities extracts keyword entities from segment text.
//
// Two methods are available: a pattern+model pipeline that combines
// universal regex patterns (titles, measurements, dates) with a
// token-classification model, and a dependency-free n-gram method used as
// the default and as the fallback whenever the model pass fails or finds
// nothing.
package entities
