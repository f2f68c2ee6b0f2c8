// Package usecase holds the application operations invoked by the chat
// front-end. Each use case depends only on repository and classifier
// interfaces.
package usecase

import "time"

// Classifier stages reported to an Observer when a fallback is used.
const (
	StageClassify = "classify"
	StageExtract  = "extract"
	StageSuggest  = "suggest"
)

const defaultLimit = 10

// Observer receives pipeline events. Implementations must be safe for
// concurrent use.
type Observer interface {
	MessageProcessed(d time.Duration)
	ClassifierFallback(stage string)
}

type nopObserver struct{}

func (nopObserver) MessageProcessed(time.Duration) {}
func (nopObserver) ClassifierFallback(string)      {}
