// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/indexit/core"
)

// TextExtractor turns a stored source reference into decoded text.
// The pipeline treats the output as ready to split.
type TextExtractor interface {
	// ExtractText reads the source behind fileRef. docType is a hint such
	// as a file extension; implementations return ErrUnsupportedFormat for
	// types they do not handle and ErrExtraction for unreadable sources.
	ExtractText(ctx context.Context, fileRef, docType string) (string, error)
}

// TextExtractorFunc adapts a function to the TextExtractor interface.
type TextExtractorFunc func(ctx context.Context, fileRef, docType string) (string, error)

func (f TextExtractorFunc) ExtractText(ctx context.Context, fileRef, docType string) (string, error) {
	return f(ctx, fileRef, docType)
}

// PlainTextExtractor reads already-decoded text files from disk.
type PlainTextExtractor struct{}

var _ TextExtractor = PlainTextExtractor{}

var plainTextTypes = map[string]bool{
	"":          true,
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".py":       true,
	".log":      true,
}

func (PlainTextExtractor) ExtractText(ctx context.Context, fileRef, docType string) (string, error) {
	if !plainTextTypes[strings.ToLower(docType)] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, docType)
	}
	data, err := os.ReadFile(fileRef)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, fileRef, err)
	}
	return string(data), nil
}

// DocTypeOf derives the extractor type hint from a document name.
func DocTypeOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// JobDispatcher hands a document off to the next stage. Implementations own
// retry, backoff, and durability across process restarts; the orchestrator
// only calls Dispatch once per transition.
type JobDispatcher interface {
	Dispatch(ctx context.Context, stage core.Stage, documentID core.ID) error
}

// JobDispatcherFunc adapts a function to the JobDispatcher interface.
type JobDispatcherFunc func(ctx context.Context, stage core.Stage, documentID core.ID) error

func (f JobDispatcherFunc) Dispatch(ctx context.Context, stage core.Stage, documentID core.ID) error {
	return f(ctx, stage, documentID)
}

// Notification is a best-effort progress report.
type Notification struct {
	Status   string
	Stage    core.Stage
	Message  string
	Progress float64
}

// Notifier receives progress notifications. Calls are best-effort: the
// orchestrator ignores errors and recovers panics, and implementations must
// return promptly.
type Notifier interface {
	Notify(documentID, datasetID core.ID, n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(documentID, datasetID core.ID, n Notification)

func (f NotifierFunc) Notify(documentID, datasetID core.ID, n Notification) {
	f(documentID, datasetID, n)
}
