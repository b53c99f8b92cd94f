package application

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	scanapp "github.com/khanhnv2901/walletscan/internal/application/scan"
	"github.com/khanhnv2901/walletscan/internal/checker"
	"github.com/khanhnv2901/walletscan/internal/detection"
)

// Settings carries the runtime options used to assemble the services.
type Settings struct {
	Timeout     time.Duration
	UserAgent   string
	Nameservers []string
	Concurrency int // Concurrent script downloads per scan
	RateLimit   int // Script requests per second (0 = unlimited)

	Patterns            []string // Empty selects the default patterns
	SuspiciousThreshold int
	ScamThreshold       int

	BatchConcurrency int // Concurrent targets when scanning several at once
	BatchRateLimit   int

	Logger *zap.Logger
}

// Container holds all application services
// This is a simple dependency injection container
type Container struct {
	Stages     *checker.Stages
	Scanner    *detection.Scanner
	Classifier *detection.Classifier
	Pipeline   *scanapp.Pipeline
	Runner     *scanapp.Runner
}

// NewContainer creates a new application service container
func NewContainer(s Settings) (*Container, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	patterns := s.Patterns
	if len(patterns) == 0 {
		patterns = detection.DefaultPatterns
	}
	patternSet, err := detection.NewPatternSet(patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	classifier, err := detection.NewClassifier(s.SuspiciousThreshold, s.ScamThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	stages := checker.NewStages(checker.Options{
		Timeout:     s.Timeout,
		UserAgent:   s.UserAgent,
		Nameservers: s.Nameservers,
		Concurrency: s.Concurrency,
		RateLimit:   s.RateLimit,
		Logger:      logger,
	})

	scanner := detection.NewScanner(patternSet)
	pipeline := scanapp.NewPipeline(stages.Liveness, stages.Fetcher, stages.Retriever, scanner, classifier, logger)

	return &Container{
		Stages:     stages,
		Scanner:    scanner,
		Classifier: classifier,
		Pipeline:   pipeline,
		Runner: &scanapp.Runner{
			Concurrency: s.BatchConcurrency,
			RateLimit:   s.BatchRateLimit,
		},
	}, nil
}
